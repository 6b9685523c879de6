// Command server runs the jam session queue HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/iliyamo/jam-session-queue/internal/broadcast"
	"github.com/iliyamo/jam-session-queue/internal/config"
	"github.com/iliyamo/jam-session-queue/internal/database"
	"github.com/iliyamo/jam-session-queue/internal/handler"
	"github.com/iliyamo/jam-session-queue/internal/logging"
	"github.com/iliyamo/jam-session-queue/internal/memstore"
	"github.com/iliyamo/jam-session-queue/internal/middleware"
	"github.com/iliyamo/jam-session-queue/internal/queue"
	"github.com/iliyamo/jam-session-queue/internal/repository"
	"github.com/iliyamo/jam-session-queue/internal/router"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

func main() {
	cfg := config.Load()

	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port to listen on")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "store backend: mysql or memory")
	flags.BoolVar(&cfg.DBMigrate, "migrate", cfg.DBMigrate, "apply the embedded schema before serving")
	_ = flags.Parse(os.Args[1:])

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, guests, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := config.LoadEngineConfig()
	hub := broadcast.NewHub(broadcast.Config{
		Heartbeat: engine.StreamHeartbeat,
		Replay:    engine.StreamReplay,
		Buffer:    engine.StreamBuffer,
	}, log)
	defer hub.Close()

	var emitter service.Emitter = hub
	if rc := config.LoadRelayConfig(); rc.Enabled {
		relay := queue.NewRelay(rc.URL, rc.Exchange, hub, log)
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("relay stopped")
			}
		}()
		emitter = relay
		log.Info().Str("exchange", rc.Exchange).Str("origin", relay.Origin()).Msg("event relay enabled")
	}

	svc := service.New(store, guests, emitter, service.Options{
		MaxOpenSongs: config.MaxConcurrentOpenSongs,
		Logger:       log.With().Str("component", "engine").Logger(),
	})

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e,
		handler.NewPublicHandler(svc),
		handler.NewStreamHandler(svc, hub, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterStaff(e, handler.NewStaffHandler(svc), cfg.JWTSecret)
	router.RegisterGuest(e, handler.NewGuestHandler(svc), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.Store).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	// Live streams only end once the hub closes their subscriptions.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the engine store and guest directory for cfg.Store.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (service.Store, service.GuestDirectory, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		st := memstore.New()
		return st, st, func() {}, nil
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() { _ = db.Close() }
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			closeDB()
			return nil, nil, nil, err
		}
		log.Info().Msg("schema migrated")
	}
	return repository.NewStore(db), repository.NewGuestRepo(db), closeDB, nil
}
