package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/log"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

// Usage: sr-migrate [up|down|status]
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Printf("error running migrate application: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	time.Local = time.UTC

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	cmd, err := db.ParseMigrateCommand(arg)
	if err != nil {
		return err
	}

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log).With(slog.String("command", string(cmd)))

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	start := time.Now()
	logger.InfoContext(ctx, "running database migration")

	if err := db.Migrate(ctx, pgxPool, cmd); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	logger.InfoContext(ctx, "database migration finished", slog.Duration("took", time.Since(start)))

	return nil
}
