package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/event"
	"github.com/tuanvumaihuynh/stockroom/internal/log"
	"github.com/tuanvumaihuynh/stockroom/internal/relay"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/mq"
	"github.com/tuanvumaihuynh/stockroom/internal/telemetry"
	"github.com/tuanvumaihuynh/stockroom/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running relay application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	eventSvc := event.New(logger, kafkaConsumer, cfg.Relay.TopicPrefix)
	cleanupEvents, err := eventSvc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running event service: %w", err)
	}
	logger.InfoContext(ctx, "event service started")

	wg.Go(func() {
		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanupEvents()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, dbClient, outboxMsgRepository, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}
