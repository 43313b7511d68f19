package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen address")
	flag.StringVar(&cfg.Namespace.MountsFile, "mounts", cfg.Namespace.MountsFile, "Mounts file to bootstrap from")
	flag.StringVar(&cfg.Namespace.RootBackendPath, "root", cfg.Namespace.RootBackendPath, "Directory backing the root mount (memory when empty)")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	cfg.Logging.Development = *dev
	if *dev {
		cfg.Logging.Level = "debug"
	}
	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)

	ctx := context.Background()
	srv, err := server.NewServer(ctx, cfg, server.Options{Logger: logger})
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		if err := srv.Close(); err != nil {
			logger.Error("Error during close", zap.Error(err))
		}
	case err := <-errChan:
		_ = srv.Close()
		logger.Fatal("Server error", zap.Error(err))
	}
}
