package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/namespace"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		cfg = config.DefaultClient()
	}
	log := logging.FromLevel(cfg.LogLevel, false)
	defer func() { _ = log.Sync() }()

	transport := rpc.NewTransport(rpc.Options{
		BaseURL:   cfg.URL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})
	a := &app{
		client: namespace.New(transport, namespace.Options{Logger: log, ServerMove: cfg.ServerMove}),
		cfg:    cfg,
		log:    log,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
