// Package pg is the Postgres persistence layer: request scope functions,
// per-tenant sequences, and the audit event log.
package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Used by tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type sessionKey struct{}

// BindSession pins a single pooled connection into the context so that
// connection-local state (the scope settings) stays visible to every
// statement issued under the returned context. Callers must invoke the
// release function once the scoped work completes.
func (s *Store) BindSession(ctx context.Context) (context.Context, func(), error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return ctx, func() {}, err
	}
	release := func() { _ = conn.Close() }
	return context.WithValue(ctx, sessionKey{}, conn), release, nil
}

// discardSession marks the pinned connection broken so the pool drops it on
// close instead of reusing it with whatever settings it still carries.
func (s *Store) discardSession(ctx context.Context) {
	if c, ok := ctx.Value(sessionKey{}).(*sql.Conn); ok {
		_ = c.Raw(func(any) error { return driver.ErrBadConn })
	}
}

// querier selects the pinned connection when one is bound, and falls back
// to the pool otherwise.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) conn(ctx context.Context) querier {
	if c, ok := ctx.Value(sessionKey{}).(*sql.Conn); ok {
		return c
	}
	return s.db
}
