package subscriber

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/bilgisen/letterpress/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps subscribers in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, verifies it and applies pending migrations.
func Connect(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresStore, error) {
	connConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	// goose works on database/sql; this shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close migration connection")
		}
	}(db)

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	log zerolog.Logger
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error().Msgf(format, v...)
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Debug().Msgf(format, v...)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Ping reports whether the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// subscribeSQL inserts or reactivates a row. The CTE sees the state before
// the statement, so the result is true unless the row was already active.
const subscribeSQL = `
WITH prev AS (
    SELECT is_active FROM subscribers WHERE email = $1
)
INSERT INTO subscribers (email, is_active) VALUES ($1, TRUE)
ON CONFLICT (email) DO UPDATE SET is_active = TRUE
RETURNING NOT COALESCE((SELECT is_active FROM prev), FALSE)`

func (p *PostgresStore) Subscribe(ctx context.Context, email string) (bool, error) {
	email = normalize(email)
	if err := validEmail(email); err != nil {
		return false, err
	}

	var created bool
	if err := p.pool.QueryRow(ctx, subscribeSQL, email).Scan(&created); err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) Unsubscribe(ctx context.Context, email string) error {
	email = normalize(email)
	if err := validEmail(email); err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, "UPDATE subscribers SET is_active = FALSE WHERE email = $1", email); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

func (p *PostgresStore) Active(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, email, is_active, created_at FROM subscribers WHERE is_active ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscribers: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscriber{}
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
