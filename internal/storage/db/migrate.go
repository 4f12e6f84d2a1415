package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrateCommand is a goose command supported by Migrate.
type MigrateCommand string

const (
	MigrateUp     MigrateCommand = "up"
	MigrateDown   MigrateCommand = "down"
	MigrateStatus MigrateCommand = "status"
)

// ParseMigrateCommand defaults to up when s is empty.
func ParseMigrateCommand(s string) (MigrateCommand, error) {
	switch cmd := MigrateCommand(s); cmd {
	case "":
		return MigrateUp, nil
	case MigrateUp, MigrateDown, MigrateStatus:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown migrate command %q, want up, down or status", s)
	}
}

// Migrate runs cmd against the embedded migrations on the database behind pool.
// Down rolls back a single version.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cmd MigrateCommand) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	var err error
	switch cmd {
	case MigrateUp:
		err = goose.UpContext(ctx, sqlDB, "migrations")
	case MigrateDown:
		err = goose.DownContext(ctx, sqlDB, "migrations")
	case MigrateStatus:
		err = goose.StatusContext(ctx, sqlDB, "migrations")
	default:
		err = fmt.Errorf("unsupported command %q", cmd)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", cmd, err)
	}

	return nil
}
