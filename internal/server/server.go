// Package server wires all pgmcp components and creates the MCP server
// instance.
//
// This is the composition root: it builds the catalogue, opens the
// connection pool and the audit trail, constructs the registry, and
// bridges it onto an MCP server. No dispatch logic lives here — only
// wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pgmcp/pgmcp/internal/audit"
	"github.com/pgmcp/pgmcp/internal/catalog"
	"github.com/pgmcp/pgmcp/internal/config"
	"github.com/pgmcp/pgmcp/internal/pool"
	"github.com/pgmcp/pgmcp/internal/registry"
	"github.com/pgmcp/pgmcp/internal/shape"
)

// Version is set at build time via ldflags.
var Version = "dev"

// drainTimeout bounds how long shutdown waits for in-flight
// invocations to return their leases.
const drainTimeout = 10 * time.Second

// New creates the MCP server with the registry bridged onto it. This is
// the single place where all dependencies are resolved.
//
// The returned cleanup function drains the pool and closes the audit
// trail; it must be called on shutdown (typically via defer) and is
// always non-nil.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := catalog.Default()
	if err != nil {
		return nil, noop, fmt.Errorf("building catalogue: %w", err)
	}

	p, err := pool.New(ctx, pool.Config{
		URL:            cfg.Database.URL,
		MaxConns:       int32(cfg.Database.MaxConns),
		MinConns:       int32(cfg.Database.MinConns),
		AcquireTimeout: time.Duration(cfg.Database.AcquireTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening connection pool: %w", err)
	}

	opts := registry.Options{
		Limits: shape.Limits{
			MaxRows:       cfg.Limits.MaxRows,
			MaxFieldChars: cfg.Limits.MaxFieldChars,
		},
		Preload: cfg.Registry.Preload,
		Logger:  logger,
	}

	var trail *audit.Trail
	if cfg.Audit.Path != "" {
		trail, err = audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			drain(p, logger)
			return nil, noop, fmt.Errorf("opening audit trail: %w", err)
		}
		opts.Record = func(e registry.Entry) {
			trail.Record(audit.Entry{
				Operation: e.Operation,
				Category:  e.Category,
				Risk:      e.Risk,
				Status:    e.Status,
				ErrorKind: e.ErrorKind,
				Duration:  e.Duration,
			})
		}
	}

	reg, err := registry.New(cat, poolAdapter{p}, opts)
	if err != nil {
		drain(p, logger)
		if trail != nil {
			trail.Close()
		}
		return nil, noop, fmt.Errorf("building registry: %w", err)
	}

	s := server.NewMCPServer(
		"pgmcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	b := newBridge(s, reg, cat, logger)
	b.register()
	registerCatalogResource(s, reg)

	cleanup := func() {
		drain(p, logger)
		if trail != nil {
			if err := trail.Close(); err != nil {
				logger.Warn("closing audit trail", "error", err)
			}
		}
	}
	return s, cleanup, nil
}

// poolAdapter narrows *pool.Pool to the interface the registry
// consumes. Only the return type changes; *pool.Lease already satisfies
// registry.Lease.
type poolAdapter struct {
	p *pool.Pool
}

func (a poolAdapter) Acquire(ctx context.Context) (registry.Lease, error) {
	l, err := a.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func drain(p *pool.Pool, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		logger.Warn("pool drain timed out", "error", err)
	}
}

// noop is the cleanup returned on construction failure so callers can
// always defer it.
func noop() {}

func serverInstructions() string {
	return `pgmcp exposes PostgreSQL operations as tools, grouped into categories
that load on demand. Start with list_categories to see what exists, then
load_category to make a category's tools available. The query category is
always loaded. Destructive tools (drop_table, drop_index, delete_rows,
drop_policy) require "confirm": true. Large results are truncated; the
response envelope says so via its "truncated" field.`
}
