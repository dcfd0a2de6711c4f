package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/auth"
	"github.com/renegades-league/draftd/internal/draft/gateway"
	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/draft/presence"
	"github.com/renegades-league/draftd/internal/httpapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	nc, err := nats.Connect(config.NATS.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer nc.Close()

	log.Info().
		Str("nats_url", config.NATS.URL).
		Str("port", config.Server.Port).
		Msg("starting draftd")

	services := setupServices(pool)

	// Publisher first: it creates the change stream the gateway consumer
	// attaches to.
	publisher, err := outbox.NewNATSPublisher(nc, config.NATS.Stream, config.NATS.SubjectPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox publisher")
	}
	worker := outbox.NewWorker(pool, publisher, outbox.Config{
		PollInterval: config.outboxPollInterval(),
		BatchSize:    int32(config.Outbox.BatchSize),
	})
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox worker")
	}

	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	connectionManager.SetStateProvider(gateway.NewDraftStateProvider(
		services.Picks, services.Settings, services.Players, services.Teams,
	))
	go connectionManager.Start(ctx)

	consumer, err := gateway.NewEventConsumer(ctx, nc, connectionManager, gateway.DefaultJetStreamConsumerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway consumer")
	}
	if err := consumer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start gateway consumer")
	}

	tracker := presence.NewTracker(0, clockwork.NewRealClock(), log.Logger)
	sub, err := tracker.Subscribe(nc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to presence")
	}
	defer sub.Unsubscribe()

	verifier := auth.NewVerifier(config.Auth.Secret)
	handler := httpapi.NewHandler(
		services.Picks,
		services.Settings,
		services.Teams,
		services.Players,
		services.Keepers,
		tracker,
		log.Logger,
	)
	wsHandler := gateway.NewWebSocketHandler(connectionManager)
	router := httpapi.NewRouter(handler, verifier, wsHandler.HandleConnection)

	server := setupServer(config.Server.Port, router)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	consumer.Stop()
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("outbox worker shutdown failed")
	}
	cancel()

	log.Info().Msg("draftd shutdown complete")
}
