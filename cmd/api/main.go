package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/abduss/cloudbin/internal/auth"
	"github.com/abduss/cloudbin/internal/config"
	"github.com/abduss/cloudbin/internal/drive"
	"github.com/abduss/cloudbin/internal/events"
	"github.com/abduss/cloudbin/internal/logger"
	"github.com/abduss/cloudbin/internal/ratelimit"
	"github.com/abduss/cloudbin/internal/server"
	"github.com/abduss/cloudbin/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	zlog, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.OpenRecordStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("open record store", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer closeStore()

	publisher := events.New(cfg.Kafka, zlog)
	defer func() {
		if err := publisher.Close(); err != nil {
			zlog.Warn("close event publisher", zap.Error(err))
		}
	}()

	authLimiter := ratelimit.New(ctx, cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow)
	defer authLimiter.Stop()
	driveLimiter := ratelimit.New(ctx, cfg.RateLimit.DriveLimit, cfg.RateLimit.DriveWindow)
	defer driveLimiter.Stop()

	authService := auth.NewService(store, publisher, cfg.Auth, zlog)
	driveService := drive.NewService(store, publisher, cfg.Drive.MaxContentBytes, zlog)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		Store:        store,
		AuthService:  authService,
		DriveService: driveService,
		AuthLimiter:  authLimiter,
		DriveLimiter: driveLimiter,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("CloudBin API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("env", cfg.Env),
			zap.String("backend", cfg.Storage.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}
