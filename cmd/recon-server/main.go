package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/forecast-recon/pkg/infrastructure/config"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/container"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/logging"
	"github.com/vsinha/forecast-recon/pkg/interfaces/api"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (optional)")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	if err := run(*configFile, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	app, err := container.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	// The server also starts without data; POST /api/v1/dataset/reload retries the load.
	if _, err := app.Datasets.Reload(ctx); err != nil {
		logger.Warn("initial dataset load failed", "error", err)
	}

	logger.Info("starting server", "addr", cfg.Server.Addr, "source", cfg.Source.Kind)
	return api.NewServer(app).Run(ctx, cfg.Server.Addr)
}
