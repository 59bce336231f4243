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
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/auction"
	"github.com/pitchside/auctioneer/internal/broadcast"
	"github.com/pitchside/auctioneer/internal/config"
	"github.com/pitchside/auctioneer/internal/gateway"
	"github.com/pitchside/auctioneer/internal/httpapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.LogLevel)

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load auction settings")
	}
	log.Info().
		Int("timer_seconds", settings.TimerSeconds).
		Int64("bid_step", settings.BidStep).
		Int64("default_balance", settings.DefaultBalance).
		Str("end_policy", string(settings.EndPolicy)).
		Msg("auction settings loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := broadcast.NewBroker(256)
	engine := auction.NewEngine(clockwork.NewRealClock(), settings, broker.Publish)
	defer engine.Close()

	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), engine.Snapshot)
	wsEvents, cancelWS := broker.Subscribe()
	defer cancelWS()
	go connectionManager.RunFanout(ctx, wsEvents)

	if cfg.NATSURL != "" {
		mirror, err := broadcast.NewNATSMirror(cfg.NATSURL, broker)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("failed to connect NATS mirror")
		}
		defer mirror.Close()
		go mirror.Run(ctx)
	}

	auth := httpapi.NewAuthenticator(cfg.AdminPIN, cfg.Captain1PIN, cfg.Captain2PIN)
	handler := httpapi.NewHandler(engine, auth)
	wsHandler := gateway.NewWebSocketHandler(connectionManager)
	server := httpapi.NewServer(cfg.Port, handler, wsHandler)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("auction server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
