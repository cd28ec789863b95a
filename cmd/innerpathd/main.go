// Command innerpathd runs the client session layer as a daemon: it restores
// persisted state, serves the localhost control API and keeps the session and
// dataset fresh on a cron schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/innerpath/client-core/internal/app"
	"github.com/innerpath/client-core/internal/infrastructure/config"
	"github.com/innerpath/client-core/internal/infrastructure/scheduler"
	"github.com/innerpath/client-core/pkg/logger"
)

const (
	syncTimeout     = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
	operatorTTL     = 24 * time.Hour
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "innerpathd",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	a.Start(ctx)

	if cfg.IsDevelopment() {
		token, err := a.OperatorToken("operator", operatorTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign operator token")
		}
		log.Info().Str("token", token).Msg("control API operator token")
	}

	sched, err := scheduler.New(cfg.Sync.Schedule, a.Syncer(), syncTimeout, logger.Component("sync"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid sync schedule")
	}
	sched.Start()

	router := a.Router()
	router.HideBanner = true
	router.HidePort = true

	go func() {
		log.Info().Str("addr", cfg.Control.Addr).Msg("control API listening")
		if err := router.Start(cfg.Control.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("control API failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control API forced to shutdown")
	}
	sched.Stop(shutdownCtx)
	if err := a.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close failed")
	}
	log.Info().Msg("stopped")
}
