package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/cmd"
	"github.com/fundlock/fundlock/cmd/runtime/version"
	"github.com/fundlock/fundlock/config"
	"github.com/fundlock/fundlock/database/mysql"
	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/reconcile"
)

func main() {
	app := cli.App{
		Name:    "fundlock",
		Usage:   "escrow state reconciler for fundlock",
		Action:  exec,
		Version: version.Get(),
		Flags: []cli.Flag{
			cmd.ConfigPathFlag,
			cmd.VerbosityFlag,
			cmd.LogFormatFlag,
		},
	}

	app.Before = func(ctx *cli.Context) error {
		logLvl, err := log.ParseLevel(ctx.String(cmd.VerbosityFlag.Name))
		if err != nil {
			return err
		}

		logFmt, err := log.ParseFormat(ctx.String(cmd.LogFormatFlag.Name))
		if err != nil {
			return err
		}

		return log.Init(logLvl, logFmt)
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("running reconciler failed", "error", err)
	}
}

func exec(ctx *cli.Context) error {
	cfg := &Config{}
	if err := config.Load(ctx.String(cmd.ConfigPathFlag.Name), cfg); err != nil {
		log.Fatal("reading reconciler config failed", "error", err)
	}

	db, err := mysql.NewMySQLDB(cfg.MySQL)
	if err != nil {
		log.Fatal("initialize mysql db error", "error", err)
	}

	r := reconcile.New(
		cfg.RefreshSeconds,
		db,
		escrow.NewClient(cfg.EscrowEndpoint, cfg.EscrowToken),
	)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		r.Stop()
	}()

	r.Run(ctx.Context)
	return nil
}

// Config defines the config for the reconciler.
type Config struct {
	MySQL          mysql.Config `yaml:"mysql" json:"mysql"`
	RefreshSeconds uint64       `yaml:"refresh_seconds" json:"refresh_seconds"`
	EscrowEndpoint string       `yaml:"escrow_endpoint" json:"escrow_endpoint"`
	EscrowToken    string       `yaml:"escrow_token" json:"escrow_token"`
}
