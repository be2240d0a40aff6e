package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/hexrange/internal/config"
	"github.com/gravitas-games/hexrange/internal/server"
	"github.com/gravitas-games/hexrange/pkg/logger"
)

func main() {
	logger.Init()
	logger.Log.Info("Starting hexrange server...")

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
		logger.Log.Infof("Configuration loaded from %s", *configPath)
	}

	srv, err := server.New(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Log.Infof("Server listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		logger.Log.Infof("Received signal %v, shutting down...", sig)
	}

	if err := srv.Shutdown(); err != nil {
		logger.Log.WithError(err).Error("Error during shutdown")
	}

	logger.Log.Info("Server stopped")
}
