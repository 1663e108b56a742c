package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/engagement-tracker/internal/config"
	"github.com/ignite/engagement-tracker/internal/pkg/logger"
	"github.com/ignite/engagement-tracker/internal/pkg/metrics"
	"github.com/ignite/engagement-tracker/internal/repository/memory"
	"github.com/ignite/engagement-tracker/internal/repository/postgres"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
	"github.com/ignite/engagement-tracker/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	migrate := flag.Bool("migrate", true, "apply the embedded schema on startup (postgres only)")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		logger.Error("tracking service stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg.Database, migrate)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc := engagement.NewService(repo)
	handler := tracking.NewHandler(svc, tracking.Options{
		Metrics:            metrics.NewMetrics("engagement", nil),
		ExposeErrorDetails: cfg.App.IsDevelopment(),
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		BaseURL:            cfg.Tracking.BaseURL,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tracking service listening",
			"addr", addr, "environment", cfg.App.Environment, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down tracking service", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (engagement.Repository, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewEngagementRepo(), func() {}, nil
	}

	db, err := postgres.Open(ctx, postgres.BuildDSN(cfg.URL, cfg.RequireTLS), postgres.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { closeQuietly(db) }

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("schema applied")
	}
	return postgres.NewEngagementRepo(db), closeDB, nil
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("close database", "error", err)
	}
}
