package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/carritosync/carrito/internal/aggregate"
	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/config"
	"github.com/carritosync/carrito/internal/database"
	"github.com/carritosync/carrito/internal/events"
	"github.com/carritosync/carrito/internal/http"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/carritosync/carrito/internal/scheduler"
	"github.com/carritosync/carrito/internal/server"
	"github.com/carritosync/carrito/internal/snapshot"
	syncengine "github.com/carritosync/carrito/internal/sync"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to configuration file")
	pflag.Parse()

	// read config
	cfg := config.New(configPath, version)

	// init new logger
	log := logger.New(cfg.Config)

	// init dynamic config
	cfg.DynamicReload(log)

	// setup server-sent-events
	serverEvents := sse.New()
	serverEvents.CreateStreamWithOpts("logs", sse.StreamOpts{MaxEntries: 1000, AutoReplay: true})
	serverEvents.CreateStreamWithOpts("sync", sse.StreamOpts{MaxEntries: 100, AutoReplay: true})

	// register SSE writer
	log.RegisterSSEWriter(serverEvents)

	// setup internal eventbus
	bus := EventBus.New()

	// open database connection
	db, err := database.NewDB(cfg.Config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create new db")
	}

	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("could not open db connection")
	}

	log.Info().Msgf("Starting Carrito")
	log.Info().Msgf("Version: %s", version)
	log.Info().Msgf("Commit: %s", commit)
	log.Info().Msgf("Build date: %s", date)
	log.Info().Msgf("Log-level: %s", cfg.Config.Logging.Level)
	log.Info().Msgf("Using database: %s", db.Driver)

	// setup repos
	var (
		kvRepo       = database.NewKVRepo(log, db)
		draftRepo    = database.NewDraftRepo(log, db)
		identityRepo = database.NewIdentityRepo(log, db)
		catalogRepo  = database.NewCatalogRepo(log, db)
	)

	// setup services
	var (
		cartService      = cartstore.NewService(log, kvRepo)
		snapshotService  = snapshot.NewService(log, kvRepo, cartService, cfg.Config.Snapshot.MaxPerUser)
		aggregateService = aggregate.NewService(log, kvRepo, cartService, identityRepo, catalogRepo)
		syncEngine       = syncengine.NewEngine(log, cartService, snapshotService, draftRepo, bus,
			syncengine.WithInterval(time.Duration(cfg.Config.Sync.IntervalSeconds)*time.Second))
		schedulingService = scheduler.NewService(log, cfg.Config, kvRepo, cartService, snapshotService)
	)

	// register event subscribers
	events.NewSubscribers(log, bus, serverEvents)

	errorChannel := make(chan error)

	go func() {
		httpServer := http.NewServer(
			log,
			cfg,
			serverEvents,
			db,
			version,
			commit,
			date,
			cartService,
			syncEngine,
			snapshotService,
			aggregateService,
		)
		errorChannel <- httpServer.Open()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	srv := server.NewServer(log, cfg.Config, schedulingService, syncEngine)
	if err := srv.Start(); err != nil {
		log.Fatal().Stack().Err(err).Msg("could not start server")
		return
	}

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			log.Log().Msg("shutting down server sighup")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			os.Exit(1)
		case syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
			log.Info().Msg("Shutting down server...")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			os.Exit(0)
		}
	}
}
