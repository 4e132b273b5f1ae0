package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/config"
	"videothingy/council-highlights/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv(config.FileEnvVar))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Service stopped")
	}
	logger.Info("Service exited properly")
}
