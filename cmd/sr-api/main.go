package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/http"
	"github.com/tuanvumaihuynh/stockroom/internal/importer"
	"github.com/tuanvumaihuynh/stockroom/internal/log"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/internal/telemetry"
	"github.com/tuanvumaihuynh/stockroom/internal/undo"
	"github.com/tuanvumaihuynh/stockroom/pkg/cmdutil"
	"github.com/tuanvumaihuynh/stockroom/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running api application: %v\n", err)
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
		HTTP     config.HTTP
		Auth     config.Auth
		Catalog  config.Catalog
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

	productRepository := repository.NewProductRepository(dbClient)
	codeSequenceRepository := repository.NewCodeSequenceRepository(dbClient)
	supplierRepository := repository.NewSupplierRepository(dbClient)
	userRepository := repository.NewUserRepository(dbClient)
	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	codes, err := allocator.New(ctx, cfg.Catalog.CodeAllocator, productRepository, codeSequenceRepository)
	if err != nil {
		return fmt.Errorf("error creating code allocator: %w", err)
	}

	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	defaultMode := model.ImportMode(cfg.Catalog.ImportDefaultMode)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userService := service.NewUserService(logger, userRepository, hasher, tokens)
	if err := userService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("error creating bootstrap admin: %w", err)
	}

	productService := service.NewProductService(
		logger, dbClient, productRepository, userRepository, outboxMsgRepository,
		codes, undo.NewBuffer(cfg.Catalog.UndoCapacity), hasher,
	)
	importService := service.NewImportService(
		logger, dbClient, productRepository, outboxMsgRepository,
		codes, importer.NewTracker(), defaultMode,
	)
	supplierService := service.NewSupplierService(supplierRepository)

	interruptChan := cmdutil.InterruptChan()

	svc := http.New(cfg.HTTP, cfg.Catalog, logger, v, http.Services{
		User:     userService,
		Product:  productService,
		Import:   importService,
		Supplier: supplierService,
		Health:   dbClient,
	})
	cleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}
	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-interruptChan

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanup(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}

	logger.InfoContext(ctx, "waiting for running imports")
	importService.Wait()

	logger.InfoContext(ctx, "http service is stopped")

	return nil
}
