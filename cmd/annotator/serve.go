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

	"github.com/spf13/cobra"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/config"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/handlers"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/mailer"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/metrics"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/middleware"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/storage"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/cache"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", os.Getenv("STARTUP_LOG_ACTIVE") == "false", "skip the startup banner")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.SetDebug(debug || !cfg.IsProduction())
	return cfg, nil
}

func serve(quiet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !quiet {
		printAsciiLogo()
		printSignature(cfg.App.Name, cfg.App.Version, cfg.Server.Env)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close(db)

	clk := clock.New()
	repos := database.NewRepos(db, clk)
	go database.StartRetention(ctx, repos.Audit, config.Duration(cfg.Database.LogRetention), config.Duration(cfg.Database.PruneInterval))

	store := guest.NewStore(guest.Options{
		Timeout:      config.Duration(cfg.Guest.SessionTimeout),
		ReapInterval: config.Duration(cfg.Guest.ReapInterval),
		Cascade: guest.CascadeRules{
			DatasetAnnotations: cfg.Guest.CascadeDatasetAnnotations,
			DatasetLabels:      cfg.Guest.CascadeDatasetLabels,
		},
		Clock: clk,
		OnReap: func(n int) {
			logger.LogInfo("[GUEST] Reclaimed %d idle sessions", n)
		},
	})
	store.Start(ctx)
	defer store.Stop()

	var objects storage.Store
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.Storage.Bucket, config.Duration(cfg.Storage.URLTTL))
		if err != nil {
			return err
		}
		defer gcs.Close()
		objects = gcs
		logger.LogInfo("Object storage: gs://%s", cfg.Storage.Bucket)
	} else {
		logger.LogWarn("storage.bucket is empty: presigned uploads are disabled.")
	}

	mail, err := mailer.New(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, cfg.App.Name)
	if err != nil {
		return err
	}

	thumbs := cache.New(cache.Options{
		Enabled:   cfg.Cache.Enabled,
		MaxSizeMB: cfg.Cache.MaxCapacity,
		TTL:       config.Duration(cfg.Cache.TTL),
	})
	go thumbs.StartGC(ctx)

	srv := handlers.NewServer(handlers.Deps{
		Config: cfg,
		Guest:  store,
		Repos:  repos,
		Tokens: auth.NewTokens(
			[]byte(cfg.Security.JWTSecret),
			config.Duration(cfg.Security.TokenTTL),
			config.Duration(cfg.Security.GuestTokenTTL),
			clk,
		),
		Storage: objects,
		Mailer:  mail,
		Cache:   thumbs,
		Metrics: metrics.New(store),
		Clock:   clk,
	})
	go srv.LoginLimiter().Run(ctx)

	var limiter *middleware.RateLimiter
	if cfg.Security.RateLimit.Enabled {
		rl := cfg.Security.RateLimit
		limiter = middleware.NewRateLimiter(rl.Requests, config.Duration(rl.Window), rl.Burst)
		go limiter.Run(ctx)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogServerStart(cfg.App.Name, cfg.App.Version, cfg.Server.Port, cfg.GetBaseUrl())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.LogInfo("Shutting down...")
	store.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.LogSuccess("Server stopped.")
	return nil
}
