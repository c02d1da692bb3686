// Package server runs the storefront process: it opens every external
// collaborator from config, serves HTTP and gRPC health, and shuts down
// gracefully when ctx is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/internal/kernel"
	"github.com/humanebio/storefront/pkg/cache"
	"github.com/humanebio/storefront/pkg/database"
	grpcserver "github.com/humanebio/storefront/pkg/grpc"
	"github.com/humanebio/storefront/pkg/llm"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/middleware"
	"github.com/humanebio/storefront/pkg/oauth"
	"github.com/humanebio/storefront/pkg/payment"
	"github.com/humanebio/storefront/pkg/storage"
	"github.com/humanebio/storefront/pkg/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 15 * time.Second
)

// Start blocks until ctx is cancelled or a listener fails.
func Start(ctx context.Context) error {
	if err := config.Load(); err != nil {
		return err
	}
	if err := checkSecrets(); err != nil {
		return err
	}

	if uri := config.LogMongoURI(); uri != "" {
		sink, err := logger.NewMongoHandler(uri, config.LogMongoDB(), slog.LevelInfo)
		if err != nil {
			logger.Warn("mongo log sink unavailable, logging to stdout only", "error", err)
		} else {
			logger.Tee(sink)
			defer sink.Close()
		}
	}

	db, err := database.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	}()

	var (
		limits middleware.LimitStore
		redis  *cache.Client
	)
	if addr := config.RedisAddr(); addr != "" {
		redis, err = cache.Connect(ctx, addr, config.RedisPassword())
		if err != nil {
			logger.Warn("redis unavailable, rate limiting in memory", "error", err)
		} else {
			defer redis.Close()
			limits = middleware.NewRedisStore(redis)
		}
	}
	if limits == nil {
		mem := middleware.NewMemoryStore()
		defer mem.Stop()
		limits = mem
	}

	disk, err := storage.Open(ctx, storage.ConfigFromEnv())
	if err != nil {
		return err
	}

	if config.StripeSecretKey() == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set; checkout will fail")
	}

	hub := ws.NewHub(ws.Options{AllowedOrigins: []string{config.AppURL()}})
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	k := kernel.New(kernel.Deps{
		DB:       db,
		Disk:     disk,
		Payments: payment.NewStripe(config.StripeSecretKey(), config.StripeCurrency(), nil),
		LLM:      llm.NewClient(config.LLMAPIURL(), config.LLMAPIKey(), config.LLMModel()),
		IdP:      oauth.NewClient(config.OAuthServerURL(), config.OAuthClientID(), config.OAuthClientSecret()),
		Limits:   limits,
		Hub:      hub,
	})

	probe := func(ctx context.Context) error {
		if err := database.Ping(ctx, db); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	gs, err := grpcserver.New(grpcserver.Options{Port: config.GRPCPort(), Probe: probe})
	if err != nil {
		return err
	}
	go gs.Watch(hubCtx, healthInterval)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 2)
	go func() { errc <- gs.Serve() }()
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errc:
		if runErr != nil {
			logger.Error("listener failed", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	gs.Stop()
	stopHub()
	return runErr
}

// checkSecrets refuses a production boot whose session tokens anyone could
// forge with the development secret.
func checkSecrets() error {
	if config.IsProduction() && config.UsingDefaultJWTSecret() {
		return errors.New("server: JWT_SECRET must be set when APP_ENV is production")
	}
	return nil
}
