package http

import (
	"fmt"
	"net"
	"net/http"

	"github.com/carritosync/carrito/internal/aggregate"
	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/config"
	"github.com/carritosync/carrito/internal/database"
	"github.com/carritosync/carrito/internal/logger"
	syncengine "github.com/carritosync/carrito/internal/sync"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Server struct {
	log zerolog.Logger
	sse *sse.Server
	db  *database.DB

	config *config.AppConfig

	version string
	commit  string
	date    string

	cartStore   cartstore.Service
	engine      *syncengine.Engine
	snapshotSvc snapshotService
	aggregator  aggregate.Service
}

func NewServer(
	log logger.Logger,
	config *config.AppConfig,
	sse *sse.Server,
	db *database.DB,
	version string,
	commit string,
	date string,
	cartStore cartstore.Service,
	engine *syncengine.Engine,
	snapshotSvc snapshotService,
	aggregator aggregate.Service,
) Server {
	return Server{
		log:     log.With().Str("module", "http").Logger(),
		config:  config,
		sse:     sse,
		db:      db,
		version: version,
		commit:  commit,
		date:    date,

		cartStore:   cartStore,
		engine:      engine,
		snapshotSvc: snapshotSvc,
		aggregator:  aggregator,
	}
}

func (s Server) Open() error {
	addr := fmt.Sprintf("%v:%v", s.config.Config.Server.Host, s.config.Config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := http.Server{
		Handler: s.Handler(),
	}

	s.log.Info().Msgf("Starting server. Listening on %s", listener.Addr().String())

	return server.Serve(listener)
}

func (s Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(&s.log))

	c := cors.New(cors.Options{
		AllowCredentials:   true,
		AllowedMethods:     []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowOriginFunc:    func(origin string) bool { return true },
		OptionsPassthrough: true,
		Debug:              false,
	})

	r.Use(c.Handler)

	encoder := encoder{}

	r.Route("/api", func(r chi.Router) {
		r.Route("/healthz", newHealthHandler(encoder, s.db).Routes)

		r.Route("/cart/{userID}", newCartHandler(encoder, s.cartStore).Routes)
		r.Route("/sync", newSyncHandler(encoder, s.engine).Routes)
		r.Route("/snapshot", newSnapshotHandler(encoder, s.engine, s.snapshotSvc).Routes)
		r.Route("/reports", newReportHandler(encoder, s.aggregator).Routes)

		r.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			// inject CORS headers to bypass checks
			s.sse.Headers = map[string]string{
				"Content-Type":      "text/event-stream",
				"Cache-Control":     "no-cache",
				"Connection":        "keep-alive",
				"X-Accel-Buffering": "no",
			}
			s.sse.ServeHTTP(w, r)
		})
	})

	return r
}
