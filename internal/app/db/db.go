/*
Package db opens the PostgreSQL pool used for durable sessions and applies the
embedded goose migrations.
*/
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"epguest/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// NewPool initializes a PostgreSQL connection pool and verifies connectivity.
// When migrate is true, pending migrations are applied before returning.
func NewPool(ctx context.Context, dsn string, migrate bool) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if migrate {
		sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
		defer sqlDB.Close()

		if err := runMigrations(ctx, sqlDB, "up"); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// Migrate connects to dsn and runs the goose command ("up", "down", "status", ...).
func Migrate(ctx context.Context, dsn, command string) error {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse database DSN: %w", err)
	}

	sqlDB := stdlib.OpenDB(*config.ConnConfig)
	defer sqlDB.Close()

	return runMigrations(ctx, sqlDB, command)
}

// runMigrations executes a goose command against the embedded migrations.
func runMigrations(ctx context.Context, db *sql.DB, command string) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migration command %q: %w", command, err)
	}

	logx.Info("Database migration command completed.", "command", command)
	return nil
}

// gooseLogger routes goose output through logx.
type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...any) {
	logx.Logger().Fatal().Str("component", "goose").Msgf(format, v...)
}

func (gooseLogger) Printf(format string, v ...any) {
	logx.Logger().Info().Str("component", "goose").Msgf(format, v...)
}
