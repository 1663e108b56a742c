package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the contacts and tracking_records tables.
func Schema() string { return schemaSQL }

// PoolOptions bounds the shared connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// BuildDSN appends connection safety options to a database URL: a connect
// timeout, server-side statement/idle-in-transaction timeouts, and
// sslmode=require when TLS is mandatory. Options already present are kept.
func BuildDSN(dsn string, requireTLS bool) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "connect_timeout") {
		dsn += sep + "connect_timeout=5"
		sep = "&"
	}
	if requireTLS && !strings.Contains(dsn, "sslmode=") {
		dsn += sep + "sslmode=require"
		sep = "&"
	}
	if !strings.Contains(dsn, "options=") {
		dsn += sep + "options=" + url.QueryEscape("-c statement_timeout=15000 -c idle_in_transaction_session_timeout=15000")
	}
	return dsn
}

// Open connects to PostgreSQL and verifies the connection with a ping.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
