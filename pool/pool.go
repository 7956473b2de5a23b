// Package pool abstracts the connection pool sessions are opened on.
package pool

import (
	"context"
	"database/sql"
	"time"
)

// Pool defines the interface for a database connection pool.
type Pool interface {
	Close() error
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Stats() sql.DBStats
}

// Limits are the pool sizing knobs. Zero values keep the driver defaults.
type Limits struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Apply sets the non-zero limits on p.
func (l Limits) Apply(p Pool) {
	if l.MaxOpenConns > 0 {
		p.SetMaxOpenConns(l.MaxOpenConns)
	}
	if l.MaxIdleConns > 0 {
		p.SetMaxIdleConns(l.MaxIdleConns)
	}
	if l.ConnMaxLifetime > 0 {
		p.SetConnMaxLifetime(l.ConnMaxLifetime)
	}
}

// StdPool is an implementation of Pool using the standard library's *sql.DB.
type StdPool struct {
	*sql.DB
}

// NewStdPool creates a new StdPool wrapping the given *sql.DB.
func NewStdPool(db *sql.DB) *StdPool {
	return &StdPool{db}
}
