// Command portal runs the career portal gateway: it serves the portal views,
// keeps each browser profile's credential server-side, gates views by role
// and forwards /api calls to the portal REST API.
//
// @title          Career Portal Gateway
// @version        1.0
// @description    Session and authorization gate in front of the career portal API.
// @BasePath       /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kavaavi/career-portal/internal/api"
	"github.com/kavaavi/career-portal/internal/infrastructure/config"
	"github.com/kavaavi/career-portal/internal/infrastructure/db/memory"
	mongodb "github.com/kavaavi/career-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/kavaavi/career-portal/internal/infrastructure/db/redis"
	"github.com/kavaavi/career-portal/internal/infrastructure/queue"
	"github.com/kavaavi/career-portal/internal/infrastructure/upstream"
	"github.com/kavaavi/career-portal/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
	devProfileKey   = "career-portal-development-only"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "career-portal-gateway",
	})

	client, err := upstream.NewClient(cfg.Upstream.URL, cfg.Upstream.Timeout)
	if err != nil {
		return err
	}

	deps := api.Dependencies{
		API:    client,
		APIURL: client.BaseURL(),
		Log:    log,
	}

	var memBackend *memory.CredentialBackend
	switch cfg.Credential.Backend {
	case config.BackendRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Redis = rdb
		deps.Backend = redisdb.NewCredentialBackend(rdb, cfg.Credential.TTL, logger.Component("credential_store"))
	default:
		memBackend = memory.NewCredentialBackend(memory.WithTTL(cfg.Credential.TTL))
		deps.Backend = memBackend
	}
	log.Info().Str("backend", cfg.Credential.Backend).Msg("credential store ready")

	g, gctx := errgroup.WithContext(ctx)

	// Audit workers outlive the server so transitions recorded by draining
	// requests are still written.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()

	var dispatcher *queue.Dispatcher
	if cfg.Audit.Enabled {
		mc, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mc.Disconnect(dctx)
		}()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return err
		}

		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, mongodb.NewAuditRepository(db), logger.Component("audit"))
		dispatcher.Start(auditCtx)
		deps.Mongo = db
		deps.Recorder = dispatcher
		log.Info().Int("workers", cfg.Audit.Workers).Msg("session audit enabled")
	}

	secret := cfg.Profile.Secret
	if secret == "" {
		log.Warn().Msg("PROFILE_SECRET not set, using the development key")
		secret = devProfileKey
	}

	e, err := api.NewRouter(api.Options{
		Development:    cfg.IsDevelopment(),
		ProfileCookie:  cfg.Profile.CookieName,
		ProfileSecret:  secret,
		CookieSecure:   cfg.Profile.Secure,
		LoginRateLimit: cfg.LoginRateLimit,
	}, deps)
	if err != nil {
		return err
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("upstream", cfg.Upstream.URL).Msg("gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if memBackend != nil {
		g.Go(func() error {
			memBackend.Run(gctx, sweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	err = g.Wait()
	stopAudit()
	if dispatcher != nil {
		dispatcher.Wait()
		if n := dispatcher.Dropped(); n > 0 {
			log.Warn().Uint64("dropped", n).Msg("audit transitions dropped")
		}
	}
	log.Info().Msg("stopped")
	return err
}
