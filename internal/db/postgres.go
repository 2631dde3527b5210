package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bharatverse/bharatverse/internal/utils"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg utils.PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.BuildDSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.Pool.Ping(ctx)
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	statements := []string{
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS users (",
			"    id TEXT PRIMARY KEY,",
			"    username TEXT NOT NULL,",
			"    email TEXT NOT NULL DEFAULT '',",
			"    password_hash TEXT NOT NULL,",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),",
			"    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
		"CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (LOWER(username))",
		"CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email)) WHERE email <> ''",
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS stories (",
			"    id TEXT PRIMARY KEY,",
			"    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,",
			"    title TEXT NOT NULL,",
			"    content TEXT NOT NULL,",
			"    category TEXT NOT NULL DEFAULT 'rural',",
			"    location TEXT,",
			"    likes_count INTEGER NOT NULL DEFAULT 0,",
			"    media_urls TEXT[] NOT NULL DEFAULT '{}',",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
		"CREATE INDEX IF NOT EXISTS stories_created_at_idx ON stories (created_at DESC)",
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS environmental_data (",
			"    id TEXT PRIMARY KEY,",
			"    location TEXT NOT NULL UNIQUE,",
			"    state TEXT NOT NULL DEFAULT '',",
			"    air_quality_index INTEGER NOT NULL DEFAULT 0,",
			"    temperature DOUBLE PRECISION NOT NULL DEFAULT 0,",
			"    humidity DOUBLE PRECISION NOT NULL DEFAULT 0,",
			"    forest_cover_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,",
			"    wildlife_count INTEGER NOT NULL DEFAULT 0,",
			"    endangered_species TEXT[] NOT NULL DEFAULT '{}',",
			"    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS wisdom_content (",
			"    id TEXT PRIMARY KEY,",
			"    title TEXT NOT NULL UNIQUE,",
			"    content TEXT NOT NULL,",
			"    category TEXT NOT NULL,",
			"    difficulty_level TEXT NOT NULL DEFAULT 'beginner',",
			"    duration_minutes INTEGER NOT NULL DEFAULT 0,",
			"    tags TEXT[] NOT NULL DEFAULT '{}',",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
	}

	for _, stmt := range statements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}

	return nil
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return 10 * time.Second
}
