package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekplan/backend/internal/cache"
	"weekplan/backend/internal/config"
	"weekplan/backend/internal/db"
	"weekplan/backend/internal/export"
	"weekplan/backend/internal/handler"
	"weekplan/backend/internal/logging"
	"weekplan/backend/internal/metrics"
	"weekplan/backend/internal/persist"
	"weekplan/backend/internal/repository"
	"weekplan/backend/internal/router"
	"weekplan/backend/internal/scheduler"
	"weekplan/backend/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weekplan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.Info(ctx, "migrations applied", "files", applied)
	}

	localCache, closeCache, err := openCache(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer closeCache()
	log.Info(ctx, "local cache ready", "backend", cfg.CacheBackend)

	m := metrics.New()
	userRepo := repository.NewUserRepository(database)
	eventRepo := repository.NewEventRepository(database)
	workTimeRepo := repository.NewWorkTimeRepository(database)

	bridge := persist.NewBridge(localCache, eventRepo, log.With("component", "persist"))
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, log.With("component", "auth"))
	plannerService := service.NewPlannerService(bridge, cfg.Grid, m, log.With("component", "planner"))
	workTimeService := service.NewWorkTimeService(workTimeRepo, log.With("component", "worktime"))

	evictor, err := scheduler.NewEvictor(plannerService, cfg.EvictSchedule, cfg.BoardIdleTTL, log.With("component", "evictor"))
	if err != nil {
		return fmt.Errorf("schedule board eviction: %w", err)
	}

	engine, err := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Planner:  handler.NewPlannerHandler(plannerService),
		WorkTime: handler.NewWorkTimeHandler(workTimeService),
		Export:   handler.NewExportHandler(plannerService, workTimeService, export.NewExporter()),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		Metrics:     m.Handler(),
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	evictor.Start()
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "backend listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			evictor.Stop(context.Background())
			return fmt.Errorf("run server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http shutdown failed", "err", err)
	}
	evictor.Stop(shutdownCtx)

	// Flush every board's unsynced edits to the local cache before exit.
	if n := plannerService.Evict(shutdownCtx, 0); n > 0 {
		log.Info(shutdownCtx, "flushed week boards", "count", n)
	}
	return nil
}

func openCache(ctx context.Context, cfg config.Config, database *sql.DB) (persist.LocalCache, func(), error) {
	if err := cache.ValidBackend(cfg.CacheBackend); err != nil {
		return nil, nil, err
	}
	switch cfg.CacheBackend {
	case cache.BackendRedis:
		redisCache, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cache: %w", err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	case cache.BackendMemory:
		return cache.NewMemory(), func() {}, nil
	default:
		return cache.NewSQLite(database), func() {}, nil
	}
}
