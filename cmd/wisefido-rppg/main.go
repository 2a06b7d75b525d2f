package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wisefido-rppg/common/logger"
	"wisefido-rppg/internal/config"
	"wisefido-rppg/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-rppg")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("Starting wisefido-rppg service",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Float64("fps", cfg.RPPG.FPS),
		zap.String("buffer_policy", cfg.RPPG.BufferPolicy),
		zap.Bool("redis", cfg.RedisEnabled),
		zap.Bool("mqtt", cfg.MQTTEnabled),
		zap.Bool("nats", cfg.NATSEnabled),
		zap.Bool("database", cfg.DatabaseEnabled),
	)

	svc, err := service.NewRPPGService(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to create rPPG service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		zl.Fatal("Failed to start rPPG service", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zl.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		zl.Error("Error during shutdown", zap.Error(err))
	}

	zl.Info("Service stopped")
}
