// Package postgres provides a Postgres-backed ResultCache.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "manifest_cache"

// CacheConfig controls the Postgres connection pool used for cache rows.
type CacheConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Cache stores one row per normalized target URL.
type Cache struct {
	pool  pool
	table string
}

// NewCache connects to Postgres and ensures the cache table exists.
func NewCache(ctx context.Context, cfg CacheConfig) (*Cache, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c := &Cache{pool: p, table: table}
	if err := c.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return c, nil
}

// NewCacheWithPool constructs a cache from an existing pool (primarily for testing).
func NewCacheWithPool(p pool, table string) (*Cache, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	resolved, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &Cache{pool: p, table: resolved}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the cache table when missing.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	target_url    TEXT PRIMARY KEY,
	manifest_text TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
)`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (c *Cache) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// Get loads the row for targetURL.
func (c *Cache) Get(ctx context.Context, targetURL string) (llmstxt.CacheEntry, bool, error) {
	query := fmt.Sprintf(`SELECT manifest_text, created_at FROM %s WHERE target_url = $1`, c.table)
	entry := llmstxt.CacheEntry{TargetURL: targetURL}
	err := c.pool.QueryRow(ctx, query, targetURL).Scan(&entry.ManifestText, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return llmstxt.CacheEntry{}, false, nil
	}
	if err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("select cache entry: %w", err)
	}
	return entry, true, nil
}

// Put upserts the row for entry.TargetURL in a single statement.
func (c *Cache) Put(ctx context.Context, entry llmstxt.CacheEntry) error {
	if entry.TargetURL == "" {
		return fmt.Errorf("target url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (target_url, manifest_text, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (target_url) DO UPDATE
SET manifest_text = EXCLUDED.manifest_text, created_at = EXCLUDED.created_at`, c.table)
	if _, err := c.pool.Exec(ctx, query, entry.TargetURL, entry.ManifestText, entry.CreatedAt); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Invalidate deletes the row for targetURL.
func (c *Cache) Invalidate(ctx context.Context, targetURL string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE target_url = $1`, c.table)
	if _, err := c.pool.Exec(ctx, query, targetURL); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
