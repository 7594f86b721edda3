// Package registry is the dispatch core of pgmcp: it owns per-category
// registration state, validates and executes invocations against pooled
// database connections, and shapes results into bounded envelopes.
//
// A Registry is explicitly constructed from a catalogue, a pool and
// options — no globals — so tests run several independent instances in
// one process.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pgmcp/pgmcp/internal/catalog"
	"github.com/pgmcp/pgmcp/internal/shape"
)

// Lease is one borrowed connection. *pool.Lease satisfies it.
type Lease interface {
	catalog.Querier
	Release()
}

// Pool lends bounded database connections to invocations. The real
// implementation lives in internal/pool; tests substitute fakes to
// observe lease accounting without a database.
type Pool interface {
	Acquire(ctx context.Context) (Lease, error)
}

// Entry describes one completed invocation for the audit hook.
type Entry struct {
	Operation string
	Category  string
	Risk      string
	Status    string
	ErrorKind string
	Duration  time.Duration
}

// Options configures a Registry. The zero value is usable.
type Options struct {
	// Limits bounds shaped payloads; zero fields use shape defaults.
	Limits shape.Limits
	// Preload names categories to register at startup in addition to
	// the catalogue's essential ones.
	Preload []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Record, when set, receives one Entry per invocation.
	Record func(Entry)
}

// Registry is the single entry point external collaborators use:
// list categories, load a category, invoke an operation.
type Registry struct {
	catalog *catalog.Catalog
	pool    Pool
	limits  shape.Limits
	logger  *slog.Logger
	record  func(Entry)

	// states has one entry per category, fixed at construction. Only
	// the registered flag mutates, under the per-category mutex — there
	// is no lock spanning unrelated categories.
	states map[string]*categoryState
}

type categoryState struct {
	mu         sync.Mutex
	registered bool
}

// New builds a Registry. Essential catalogue categories and every
// Preload category start registered; an unknown Preload name is a
// startup error, not a silent skip.
func New(cat *catalog.Catalog, pool Pool, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		catalog: cat,
		pool:    pool,
		limits:  opts.Limits,
		logger:  logger,
		record:  opts.Record,
		states:  make(map[string]*categoryState),
	}

	for _, c := range cat.AllCategories() {
		r.states[c.Name] = &categoryState{registered: c.Essential}
	}
	for _, name := range opts.Preload {
		st, ok := r.states[name]
		if !ok {
			return nil, fmt.Errorf("preload: unknown category %q", name)
		}
		st.registered = true
	}

	return r, nil
}

// CategoryInfo is one row of ListCategories.
type CategoryInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Loaded      bool     `json:"loaded"`
	Operations  []string `json:"operations"`
}

// ListCategories reports every category in catalogue order with its
// current registration state.
func (r *Registry) ListCategories() []CategoryInfo {
	cats := r.catalog.AllCategories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		ops, _ := r.catalog.OperationsOf(c.Name)
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = op.Name
		}
		out = append(out, CategoryInfo{
			Name:        c.Name,
			Description: c.Description,
			Loaded:      r.isRegistered(c.Name),
			Operations:  names,
		})
	}
	return out
}

// LoadResult reports the outcome of one load request. NewlyRegistered
// is empty when the category was already loaded.
type LoadResult struct {
	Category        string   `json:"category"`
	NewlyRegistered []string `json:"newly_registered"`
}

// LoadCategory registers every operation of the named category. The
// unregistered → registered transition happens exactly once per
// category per process: when two loads race, one caller gets the full
// newly-registered set and the other an empty one. Re-loading a loaded
// category is an idempotent no-op, not an error.
func (r *Registry) LoadCategory(name string) (LoadResult, error) {
	st, ok := r.states[name]
	if !ok {
		return LoadResult{}, errUnknownCategory(name)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	res := LoadResult{Category: name, NewlyRegistered: []string{}}
	if st.registered {
		return res, nil
	}
	st.registered = true

	ops, err := r.catalog.OperationsOf(name)
	if err != nil {
		// Unreachable: states is built from the catalogue.
		return LoadResult{}, errUnknownCategory(name)
	}
	for _, op := range ops {
		res.NewlyRegistered = append(res.NewlyRegistered, op.Name)
	}

	r.logger.Info("category loaded", "category", name, "operations", len(res.NewlyRegistered))
	return res, nil
}

func (r *Registry) isRegistered(category string) bool {
	st, ok := r.states[category]
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.registered
}
