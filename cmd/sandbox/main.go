package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimasrn/billing-console/internal/config"
	"github.com/nimasrn/billing-console/internal/sandbox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(envPath()); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	store := sandbox.NewStore()
	store.Seed()
	for _, c := range store.Customers() {
		log.Info().Str("id", c.ID).Str("name", c.Name).Msg("seeded customer")
	}

	router := sandbox.SetupRouter(sandbox.NewHandler(store, cfg.SandboxAPIKey, log.Logger))

	srv := &http.Server{
		Addr:         cfg.SandboxListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Bool("open_token", cfg.SandboxAPIKey == "").Msg("Sandbox started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sandbox...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Sandbox exited")
}

func envPath() string {
	for _, v := range os.Args[1:] {
		if path, ok := strings.CutPrefix(v, "--env="); ok {
			return path
		}
	}
	return ""
}
