// Command devserver runs the in-memory reference backend that innerpathd and
// the integration tests talk to.
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

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/devserver"
	"github.com/innerpath/client-core/internal/infrastructure/config"
	"github.com/innerpath/client-core/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "devserver",
	})

	var seed []devserver.SeedUser
	if cfg.Dev.AdminEmail != "" {
		seed = append(seed, devserver.SeedUser{
			Email:    cfg.Dev.AdminEmail,
			Password: cfg.Dev.AdminPassword,
			Username: "admin",
			Role:     domain.RoleSuperAdmin,
		})
	}

	srv, err := devserver.New(devserver.Options{
		JWTSecret: cfg.Dev.JWTSecret,
		TokenTTL:  cfg.Dev.TokenTTL,
		Seed:      seed,
		Log:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed devserver")
	}

	e := srv.Echo()
	e.HideBanner = true
	e.HidePort = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Dev.Port
		log.Info().Str("addr", addr).Msg("devserver listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("devserver failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("devserver forced to shutdown")
	}
	log.Info().Msg("devserver stopped")
}
