package server

import (
	"sync"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/carritosync/carrito/internal/scheduler"
	syncengine "github.com/carritosync/carrito/internal/sync"
	"github.com/rs/zerolog"
)

type Server struct {
	log    zerolog.Logger
	config *domain.Config

	scheduler scheduler.Service
	engine    *syncengine.Engine

	stopWG sync.WaitGroup
	lock   sync.Mutex
}

func NewServer(log logger.Logger, config *domain.Config, scheduler scheduler.Service, engine *syncengine.Engine) *Server {
	return &Server{
		log:       log.With().Str("module", "server").Logger(),
		config:    config,
		scheduler: scheduler,
		engine:    engine,
	}
}

func (s *Server) Start() error {
	// start cron scheduler
	s.scheduler.Start()

	return nil
}

func (s *Server) Shutdown() {
	s.log.Info().Msg("Shutting down server")

	// stop any active sync session first so in-flight pushes are discarded
	s.engine.StopAutoSync()

	// stop cron scheduler
	s.scheduler.Stop()
}
