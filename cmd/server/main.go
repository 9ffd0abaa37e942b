package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketmaker/internal/api"
	"marketmaker/internal/api/middleware"
	"marketmaker/internal/config"
	"marketmaker/internal/supervisor"
	"marketmaker/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	middleware.SetLogger(logger)
	middleware.SetStatusTokenHash(cfg.API.TokenHash)

	sup, err := supervisor.New(supervisor.Config{
		Connector:     cfg.Connector,
		Pairs:         cfg.Pairs,
		OutdatePeriod: cfg.OutdatePeriod,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build supervisor", zap.Error(err))
	}

	router := api.SetupRoutes(sup)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("engine starting", zap.String("addr", httpServer.Addr))
		sup.Run(ctx)
	}()

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("engine stopped")
}
