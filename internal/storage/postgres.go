package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresOptions tunes how OpenPostgres waits for the server.
type PostgresOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultPostgresOptions() PostgresOptions {
	return PostgresOptions{MaxRetries: 30, RetryDelay: 2 * time.Second}
}

// NormalizeDatabaseURL rewrites postgresql:// to postgres:// and defaults
// sslmode to disable when the URL does not set it.
func NormalizeDatabaseURL(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if databaseURL != "" && !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL += separator + "sslmode=disable"
	}
	return databaseURL
}

// OpenPostgres connects through pgx, waits for the server to accept
// connections and applies pending migrations.
func OpenPostgres(ctx context.Context, databaseURL string, opts PostgresOptions) (*Repository, error) {
	config, err := pgx.ParseConfig(NormalizeDatabaseURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}

	db := stdlib.OpenDB(*config)
	if err := waitForPostgres(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}

	// The migrate driver closes the handle it is given.
	if err := RunPostgresMigrations(stdlib.OpenDB(*config)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db, postgresDialect), nil
}

func waitForPostgres(ctx context.Context, db *sql.DB, opts PostgresOptions) error {
	var err error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			slog.InfoContext(ctx, "Database connection established", "attempt", attempt)
			return nil
		}
		if attempt == opts.MaxRetries {
			break
		}
		slog.WarnContext(ctx, "Database not ready, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxRetries,
			"retry_in", opts.RetryDelay,
			"error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	return fmt.Errorf("connect to database after %d attempts: %w", opts.MaxRetries, err)
}
