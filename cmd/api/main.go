package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/markdave123-py/ivyready/internal/app"
	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	logger.Init(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer application.Close()

	log.Info().Msg("ivyready is running")
	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		application.Close()
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
