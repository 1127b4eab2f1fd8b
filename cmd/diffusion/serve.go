package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/influence-diffusion/pkg/api"
	"github.com/gilchrisn/influence-diffusion/pkg/config"
	"github.com/gilchrisn/influence-diffusion/pkg/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP experiment service",
	Long: `Starts the job service: comparisons are submitted over a JSON API, run in the
background and their averaged results kept in the configured result store.
Settings are read from the environment (SERVER_ADDRESS, JOB_MAX_WORKERS,
STORE_BACKEND, REDIS_URL, ...).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			parsed, err := zerolog.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}
			zerolog.SetGlobalLevel(parsed)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("address"); addr != "" {
			cfg.Server.Address = addr
		}

		log.Info().
			Str("address", cfg.Server.Address).
			Int("max_workers", cfg.Jobs.MaxWorkers).
			Dur("job_timeout", cfg.Jobs.JobTimeout).
			Str("store", cfg.Storage.Backend).
			Msg("Configuration loaded")

		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("address", "", "Listen address, overrides SERVER_ADDRESS")
}

func newResultStore(cfg *config.Config) (service.ResultStore, error) {
	if cfg.Storage.Backend == "redis" {
		return service.NewRedisStore(service.RedisConfig{
			URL:    cfg.Storage.RedisURL,
			Prefix: cfg.Storage.Prefix,
			TTL:    cfg.Jobs.ResultTTL,
		})
	}
	return service.NewMemoryStore(cfg.Jobs.ResultTTL), nil
}

func serve(cfg *config.Config) error {
	store, err := newResultStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}

	jobService := service.NewJobService(cfg.Jobs, cfg.Defaults, store)
	handlers := api.NewHandlers(jobService)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handlers, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Msg("HTTP server starting")
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		jobService.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		server.Close()
	}
	if err := jobService.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close result store")
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
