package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/api/server"
	"github.com/fundlock/fundlock/api/service"
	"github.com/fundlock/fundlock/cmd"
	"github.com/fundlock/fundlock/cmd/runtime/version"
	"github.com/fundlock/fundlock/config"
	"github.com/fundlock/fundlock/database/mysql"
	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/funding"
	"github.com/fundlock/fundlock/ledger"
	"github.com/fundlock/fundlock/project"
)

func main() {
	app := cli.App{
		Name:    "fundlock",
		Usage:   "milestone escrow crowdfunding api service",
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
		log.Error("running api application failed", "error", err)
	}
}

func exec(ctx *cli.Context) error {
	cfg := &Config{}
	if err := config.Load(ctx.String(cmd.ConfigPathFlag.Name), cfg); err != nil {
		log.Fatal("reading api config failed", "error", err)
	}

	db, err := mysql.NewMySQLDB(cfg.MySQL)
	if err != nil {
		log.Fatal("initialize mysql db error", "error", err)
	}

	gateway := escrow.NewClient(cfg.EscrowEndpoint, cfg.EscrowToken)
	engine := funding.NewEngine(
		db,
		gateway,
		project.NewHTTPService(cfg.ProjectEndpoint),
		ledger.NewHorizonClient(cfg.HorizonEndpoint),
	)

	server.New(cfg.Port, cfg.JWTSecret, service.New(db, engine, gateway)).Run()
	return nil
}

// Config defines the config for the api service.
type Config struct {
	Port            int          `yaml:"port" json:"port"`
	MySQL           mysql.Config `yaml:"mysql" json:"mysql"`
	EscrowEndpoint  string       `yaml:"escrow_endpoint" json:"escrow_endpoint"`
	EscrowToken     string       `yaml:"escrow_token" json:"escrow_token"`
	ProjectEndpoint string       `yaml:"project_endpoint" json:"project_endpoint"`
	HorizonEndpoint string       `yaml:"horizon_endpoint" json:"horizon_endpoint"`
	JWTSecret       string       `yaml:"jwt_secret" json:"jwt_secret"`
}
