package service

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/funding"
)

// CallerKey is the gin context key under which the auth middleware stores
// the authenticated funding.Caller.
const CallerKey = "caller"

// Service defines an instance of service that handles platform requests.
type Service struct {
	db      *gorm.DB
	engine  *funding.Engine
	gateway escrow.Gateway
}

// New creates a new service instance. The gateway is used for read-side
// escrow joins only; all mutations go through the funding engine.
func New(db *gorm.DB, engine *funding.Engine, gateway escrow.Gateway) *Service {
	return &Service{
		db:      db,
		engine:  engine,
		gateway: gateway,
	}
}

func caller(c *gin.Context) (funding.Caller, error) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return funding.Caller{}, errUnauthenticated
	}

	identity, ok := v.(funding.Caller)
	if !ok {
		return funding.Caller{}, errUnauthenticated
	}

	return identity, nil
}

type pingResp struct {
	Pong string `json:"pong"`
}

func (s *Service) Ping(_ *gin.Context) (*pingResp, error) {
	return &pingResp{Pong: "pong"}, nil
}
