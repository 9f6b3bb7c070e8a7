// Package postgres wraps a lib/pq connection pool with transaction and
// schema helpers for the corpus, TREC run and analytics tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	_ "github.com/lib/pq"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping reports whether the database is reachable. It backs the readiness
// check.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id        TEXT PRIMARY KEY,
		load_order    INTEGER NOT NULL,
		file_name     TEXT NOT NULL DEFAULT '',
		path          TEXT NOT NULL DEFAULT '',
		original_text TEXT NOT NULL,
		extension     TEXT NOT NULL DEFAULT '',
		author        TEXT,
		bibliography  TEXT,
		categories    TEXT[],
		caption       TEXT,
		alt_text      TEXT,
		page_url      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS documents_load_order_idx ON documents (load_order)`,
	`CREATE TABLE IF NOT EXISTS trec_runs (
		id         BIGSERIAL PRIMARY KEY,
		run_id     TEXT NOT NULL,
		model      TEXT NOT NULL,
		query_id   TEXT NOT NULL,
		doc_id     TEXT NOT NULL,
		rank       INTEGER NOT NULL,
		score      DOUBLE PRECISION NOT NULL,
		run_tag    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the tables the service reads and writes if they do not
// exist yet.
func (c *Client) Migrate(ctx context.Context) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
		}
		return nil
	})
}
