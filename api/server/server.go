package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/api/service"
)

// Server defines an instance of a server that handles the requests of
// the platform's clients.
type Server struct {
	port   int
	engine *gin.Engine
}

// New returns a new instance of the server.
func New(port int, jwtSecret string, service *service.Service) *Server {
	server := &Server{
		port:   port,
		engine: gin.Default(),
	}

	server.registerRouter(jwtSecret, service)
	return server
}

func (s *Server) registerRouter(jwtSecret string, service *service.Service) {
	s.engine.Use(handleError())
	s.engine.GET("metrics", gin.WrapH(promhttp.Handler()))

	g := s.engine.Group("fundlock/v1")
	g.GET("ping", s.handle(service.Ping))
	g.GET("campaign", s.handle(service.Campaign))
	g.GET("campaigns", s.handle(service.Campaigns))
	g.GET("contributions", s.handle(service.Contributions))

	authed := g.Group("", auth(jwtSecret))
	authed.POST("campaign", s.handle(service.CreateCampaign))
	authed.POST("campaign/submit", s.handle(service.SubmitCampaign))
	authed.POST("campaign/approve", s.handle(service.ApproveCampaign))
	authed.POST("campaign/cancel", s.handle(service.CancelCampaign))
	authed.POST("campaign/fund", s.handle(service.FundCampaign))
	authed.POST("milestone/status", s.handle(service.UpdateMilestoneStatus))
}

// handleError renders the first error recorded by a handler using the
// service error table.
func handleError() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors[0].Err
		status, code, msg := service.ErrorResponse(err)
		c.JSON(status, gin.H{
			"code": code,
			"msg":  msg,
		})
	}
}

// Run the server
func (s *Server) Run() {
	if err := s.engine.Run(fmt.Sprintf(":%d", s.port)); err != nil &&
		err != http.ErrServerClosed {
		log.Error("run the server failed", "error", err)
		os.Exit(1)
	}
}
