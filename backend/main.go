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
	"github.com/rs/zerolog/log"

	"frizerie/m/internal/api"
	"frizerie/m/internal/config"
	"frizerie/m/internal/database"
	"frizerie/m/internal/logging"
	"frizerie/m/internal/migrations"
	"frizerie/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", cfg.DatabaseDSN).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	if cfg.AdminEmail != "" {
		id, err := seed.EnsureAdmin(db, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin")
		}
		log.Info().Int64("user_id", id).Str("email", cfg.AdminEmail).Msg("admin account ready")
	}
	if cfg.ServicesCSV != "" {
		n, err := seed.LoadServices(db, cfg.ServicesCSV)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.ServicesCSV).Msg("failed to load services")
		} else {
			log.Info().Int("inserted", n).Msg("services loaded")
		}
	}

	handler := api.New(db, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("prefix", cfg.APIPrefix).Msgf("%s server starting", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
