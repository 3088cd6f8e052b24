// Package sqlite opens the books database file and hands out one
// connection per request.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const driverName = "sqlite"

// Config controls how the database file is opened.
type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
	// ReadWrite opens the file writable. The API never sets it; fixtures do.
	ReadWrite bool
}

// Provider owns the connection pool. Each caller acquires its own *sqlx.Conn,
// so no cursor state is shared between concurrent requests.
type Provider struct {
	db *sqlx.DB
}

// DSN builds the modernc.org/sqlite connection string for cfg.
func DSN(cfg Config) string {
	q := url.Values{}
	if cfg.ReadWrite {
		q.Set("mode", "rwc")
	} else {
		q.Set("mode", "ro")
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	return "file:" + uriPathEscaper.Replace(cfg.Path) + "?" + q.Encode()
}

var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// Open opens the database at cfg.Path and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	db, err := sqlx.Open(driverName, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 8
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}
	return &Provider{db: db}, nil
}

// NewProvider wraps an already opened pool.
func NewProvider(db *sqlx.DB) *Provider {
	return &Provider{db: db}
}

// Acquire reserves a dedicated connection. Callers must Release it.
func (p *Provider) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Release returns conn to the pool. Close errors are logged only.
func (p *Provider) Release(conn *sqlx.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Warn("release connection failed", "error", err)
	}
}

// Ping checks the database is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// InUse reports how many connections are currently checked out.
func (p *Provider) InUse() int {
	return p.db.Stats().InUse
}

// DB exposes the pool.
func (p *Provider) DB() *sqlx.DB {
	return p.db
}

func (p *Provider) Close() error {
	return p.db.Close()
}
