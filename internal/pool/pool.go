// Package pool owns the bounded set of live database connections.
//
// It is a thin lease layer over pgx's connection pool: pgxpool already
// handles opening, health-checking and replacing broken connections up
// to the configured maximum; this package adds the acquire timeout, the
// drain gate and single-release lease semantics the dispatcher relies
// on. All database I/O in pgmcp goes through leases obtained here.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrExhausted is returned when no connection becomes free within
	// the acquire timeout. Transient: the caller may retry.
	ErrExhausted = errors.New("connection pool exhausted")

	// ErrDraining is returned for acquires that arrive after Drain
	// started.
	ErrDraining = errors.New("connection pool is draining")
)

// Config carries the knobs the pool needs. The database URL arrives
// ready to use from config loading; the pool never reads the
// environment itself.
type Config struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
}

// Pool is a bounded connection pool issuing single-invocation leases.
type Pool struct {
	inner          *pgxpool.Pool
	acquireTimeout time.Duration
	draining       atomic.Bool
}

// New opens the pool and verifies connectivity with one ping. A failure
// here is fatal at startup — the server must not come up without a
// working database.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}

	inner, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := inner.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pool{inner: inner, acquireTimeout: timeout}, nil
}

// Acquire borrows one connection, waiting at most the acquire timeout
// for a free slot. The caller owns the returned lease until Release.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.draining.Load() {
		return nil, ErrDraining
	}

	ctx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.inner.Acquire(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrExhausted
		}
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Lease{conn: conn}, nil
}

// Outstanding reports how many leases are currently held.
func (p *Pool) Outstanding() int32 {
	return p.inner.Stat().AcquiredConns()
}

// Drain stops issuing leases, waits for outstanding leases to return,
// then closes every connection. Returns ctx.Err() if the context ends
// before the drain completes; the close keeps running regardless.
func (p *Pool) Drain(ctx context.Context) error {
	p.draining.Store(true)

	done := make(chan struct{})
	go func() {
		p.inner.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lease is one borrowed connection, owned exclusively by a single
// invocation. Release is idempotent; releasing twice is a no-op, not a
// double-free.
type Lease struct {
	conn     *pgxpool.Conn
	released atomic.Bool
}

func (l *Lease) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return l.conn.Exec(ctx, sql, args...)
}

func (l *Lease) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return l.conn.Query(ctx, sql, args...)
}

func (l *Lease) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return l.conn.QueryRow(ctx, sql, args...)
}

// Release returns the connection to the pool. pgxpool discards the
// underlying connection instead of recycling it if it is in a bad
// state, and opens a replacement on a later Acquire.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.conn.Release()
	}
}
