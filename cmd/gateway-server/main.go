package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/api"
	"github.com/router-panel/router-panel-pro/internal/config"
	"github.com/router-panel/router-panel-pro/internal/telemetry"
	"github.com/router-panel/router-panel-pro/internal/upstream"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/gateway-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Panel datastore client
	store := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	// Optional NATS connection for telemetry fan-out
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, telemetry fan-out disabled")
			nc = nil
		} else {
			defer nc.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("Connected to NATS")
		}
	}

	engine := telemetry.NewEngine(
		cfg.Telemetry.WindowSize,
		cfg.Telemetry.MinInterval,
		nc,
		cfg.Telemetry.NATSSubject,
	)

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, store, engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("API server stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Stopped")
}
