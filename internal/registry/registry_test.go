package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgmcp/pgmcp/internal/catalog"
	"github.com/pgmcp/pgmcp/internal/pool"
	"github.com/pgmcp/pgmcp/internal/registry"
	"github.com/pgmcp/pgmcp/internal/shape"
)

// --- fakes ---

// fakePool counts lease traffic so tests can assert the no-leak
// invariant without a database.
type fakePool struct {
	mu          sync.Mutex
	acquires    int
	outstanding int
	acquireErr  error
}

func (p *fakePool) Acquire(ctx context.Context) (registry.Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquires++
	p.outstanding++
	return &fakeLease{pool: p}, nil
}

func (p *fakePool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

func (p *fakePool) Acquires() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

type fakeLease struct {
	pool     *fakePool
	released bool
}

func (l *fakeLease) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("OK"), nil
}

func (l *fakeLease) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("fake lease has no rows")
}

func (l *fakeLease) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (l *fakeLease) Release() {
	l.pool.mu.Lock()
	defer l.pool.mu.Unlock()
	if !l.released {
		l.released = true
		l.pool.outstanding--
	}
}

// testCatalog mirrors the shape of the real catalogue with canned
// operation bodies: a preloaded ping category, lazily loaded table and
// index categories, and failure/row-volume probes.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	categories := []catalog.Category{
		{Name: "ping", Description: "always available", Essential: true},
		{Name: "table", Description: "table operations"},
		{Name: "index", Description: "index operations"},
	}
	operations := []catalog.Operation{
		{
			Name: "ping", Category: "ping", Risk: catalog.RiskRead,
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return catalog.ScalarResult("pong"), nil
			},
		},
		{
			Name: "list_tables", Category: "table", Risk: catalog.RiskRead,
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return &catalog.Result{
					Kind:    catalog.KindRows,
					Columns: []string{"tablename"},
					Rows:    [][]any{{"users"}, {"orders"}},
				}, nil
			},
		},
		{
			Name: "create_table", Category: "table", Risk: catalog.RiskWrite,
			Input: []catalog.Field{
				{Name: "table", Type: catalog.TypeString, Required: true, Pattern: catalog.Identifier},
			},
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return &catalog.Result{Kind: catalog.KindCommand, Command: "CREATE TABLE"}, nil
			},
		},
		{
			Name: "drop_table", Category: "table", Risk: catalog.RiskDestructive,
			Input: []catalog.Field{
				{Name: "table", Type: catalog.TypeString, Required: true, Pattern: catalog.Identifier},
			},
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return &catalog.Result{Kind: catalog.KindCommand, Command: "DROP TABLE"}, nil
			},
		},
		{
			Name: "create_index", Category: "index", Risk: catalog.RiskWrite,
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return &catalog.Result{Kind: catalog.KindCommand, Command: "CREATE INDEX"}, nil
			},
		},
		{
			Name: "boom", Category: "ping", Risk: catalog.RiskRead,
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				return nil, errors.New("relation does not exist")
			},
		},
		{
			Name: "many_rows", Category: "ping", Risk: catalog.RiskRead,
			Execute: func(ctx context.Context, q catalog.Querier, args map[string]any) (*catalog.Result, error) {
				res := &catalog.Result{Kind: catalog.KindRows, Columns: []string{"n"}}
				for i := 0; i < 250; i++ {
					res.Rows = append(res.Rows, []any{i})
				}
				return res, nil
			},
		},
	}

	cat, err := catalog.New(categories, operations)
	if err != nil {
		t.Fatalf("building test catalogue: %v", err)
	}
	return cat
}

func newTestRegistry(t *testing.T, p registry.Pool, opts registry.Options) *registry.Registry {
	t.Helper()
	reg, err := registry.New(testCatalog(t), p, opts)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

// --- load/registration state ---

func TestLoadCategory_ReportsNewlyRegisteredOnce(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{})

	res, err := reg.LoadCategory("table")
	if err != nil {
		t.Fatalf("LoadCategory failed: %v", err)
	}
	want := []string{"list_tables", "create_table", "drop_table"}
	if len(res.NewlyRegistered) != len(want) {
		t.Fatalf("newly registered = %v, want %v", res.NewlyRegistered, want)
	}
	for i, name := range want {
		if res.NewlyRegistered[i] != name {
			t.Errorf("newly registered[%d] = %q, want %q", i, res.NewlyRegistered[i], name)
		}
	}

	// Second load: idempotent no-op, empty set, no error.
	res, err = reg.LoadCategory("table")
	if err != nil {
		t.Fatalf("repeat LoadCategory failed: %v", err)
	}
	if len(res.NewlyRegistered) != 0 {
		t.Errorf("repeat load reported %v, want empty", res.NewlyRegistered)
	}
}

func TestLoadCategory_Unknown(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{})

	_, err := reg.LoadCategory("bogus")
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	var derr *registry.Error
	if !errors.As(err, &derr) || derr.Kind != registry.KindUnknownCategory {
		t.Errorf("error = %v, want kind %s", err, registry.KindUnknownCategory)
	}
}

func TestLoadCategory_ConcurrentLoadsReportToExactlyOneCaller(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{})

	const loaders = 16
	results := make([]registry.LoadResult, loaders)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := 0; i < loaders; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			res, err := reg.LoadCategory("index")
			if err != nil {
				t.Errorf("concurrent load failed: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	start.Done()
	done.Wait()

	winners := 0
	for _, res := range results {
		if len(res.NewlyRegistered) > 0 {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("%d callers saw the newly-registered set, want exactly 1", winners)
	}
}

func TestNew_PreloadUnknownCategory(t *testing.T) {
	_, err := registry.New(testCatalog(t), &fakePool{}, registry.Options{Preload: []string{"nope"}})
	if err == nil {
		t.Fatal("expected error for unknown preload category")
	}
}

func TestNew_PreloadRegistersCategory(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{Preload: []string{"index"}})

	env := reg.Invoke(context.Background(), "create_index", map[string]any{})
	if env.Status != shape.StatusOK {
		t.Fatalf("preloaded operation failed: %+v", env)
	}
}

func TestListCategories_OrderAndLoadState(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{})

	infos := reg.ListCategories()
	wantOrder := []string{"ping", "table", "index"}
	if len(infos) != len(wantOrder) {
		t.Fatalf("got %d categories, want %d", len(infos), len(wantOrder))
	}
	for i, want := range wantOrder {
		if infos[i].Name != want {
			t.Errorf("category[%d] = %q, want %q", i, infos[i].Name, want)
		}
	}
	if !infos[0].Loaded {
		t.Error("essential category should start loaded")
	}
	if infos[1].Loaded || infos[2].Loaded {
		t.Error("non-essential categories should start unloaded")
	}

	if _, err := reg.LoadCategory("table"); err != nil {
		t.Fatalf("LoadCategory failed: %v", err)
	}
	if !reg.ListCategories()[1].Loaded {
		t.Error("table should be loaded after LoadCategory")
	}
}

// --- dispatch ---

func TestInvoke_UnknownOperation_NoPoolAcquisition(t *testing.T) {
	p := &fakePool{}
	reg := newTestRegistry(t, p, registry.Options{})

	env := reg.Invoke(context.Background(), "no_such_op", nil)
	if env.ErrorKind != registry.KindUnknownOperation {
		t.Errorf("kind = %q, want %q", env.ErrorKind, registry.KindUnknownOperation)
	}
	if p.Acquires() != 0 {
		t.Errorf("pool acquired %d leases, want 0", p.Acquires())
	}
}

func TestInvoke_NotLoadedThenLoaded(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{})
	ctx := context.Background()

	env := reg.Invoke(ctx, "list_tables", map[string]any{})
	if env.ErrorKind != registry.KindOperationNotLoaded {
		t.Fatalf("kind = %q, want %q", env.ErrorKind, registry.KindOperationNotLoaded)
	}

	if _, err := reg.LoadCategory("table"); err != nil {
		t.Fatalf("LoadCategory failed: %v", err)
	}

	env = reg.Invoke(ctx, "list_tables", map[string]any{})
	if env.Status != shape.StatusOK {
		t.Fatalf("after load, invoke failed: %+v", env)
	}
	payload, ok := env.Payload.(shape.TablePayload)
	if !ok {
		t.Fatalf("payload is %T, want TablePayload", env.Payload)
	}
	if len(payload.Rows) != 2 {
		t.Errorf("got %d rows, want 2", len(payload.Rows))
	}

	// A different unloaded category stays unloaded.
	env = reg.Invoke(ctx, "create_index", map[string]any{})
	if env.ErrorKind != registry.KindOperationNotLoaded {
		t.Errorf("kind = %q, want %q", env.ErrorKind, registry.KindOperationNotLoaded)
	}
}

func TestInvoke_InvalidArguments_NoPoolAcquisition(t *testing.T) {
	p := &fakePool{}
	reg := newTestRegistry(t, p, registry.Options{})
	if _, err := reg.LoadCategory("table"); err != nil {
		t.Fatalf("LoadCategory failed: %v", err)
	}

	env := reg.Invoke(context.Background(), "create_table", map[string]any{
		"table": "not a valid identifier!",
	})
	if env.ErrorKind != registry.KindInvalidArguments {
		t.Errorf("kind = %q, want %q", env.ErrorKind, registry.KindInvalidArguments)
	}
	if p.Acquires() != 0 {
		t.Errorf("pool acquired %d leases, want 0", p.Acquires())
	}
}

func TestInvoke_ConfirmationRequired_NoDatabaseCalls(t *testing.T) {
	p := &fakePool{}
	reg := newTestRegistry(t, p, registry.Options{})
	if _, err := reg.LoadCategory("table"); err != nil {
		t.Fatalf("LoadCategory failed: %v", err)
	}
	ctx := context.Background()

	env := reg.Invoke(ctx, "drop_table", map[string]any{"table": "users"})
	if env.ErrorKind != registry.KindConfirmationRequired {
		t.Fatalf("kind = %q, want %q", env.ErrorKind, registry.KindConfirmationRequired)
	}
	if p.Acquires() != 0 {
		t.Errorf("pool acquired %d leases, want 0", p.Acquires())
	}

	env = reg.Invoke(ctx, "drop_table", map[string]any{"table": "users", "confirm": true})
	if env.Status != shape.StatusOK {
		t.Fatalf("confirmed drop failed: %+v", env)
	}
	if p.Acquires() != 1 {
		t.Errorf("pool acquired %d leases, want 1", p.Acquires())
	}
}

func TestInvoke_LeaseReleasedOnEveryPath(t *testing.T) {
	p := &fakePool{}
	reg := newTestRegistry(t, p, registry.Options{})
	ctx := context.Background()

	// Success path.
	if env := reg.Invoke(ctx, "ping", nil); env.Status != shape.StatusOK {
		t.Fatalf("ping failed: %+v", env)
	}
	if p.Outstanding() != 0 {
		t.Errorf("outstanding = %d after success, want 0", p.Outstanding())
	}

	// Execution failure path.
	env := reg.Invoke(ctx, "boom", nil)
	if env.ErrorKind != registry.KindExecutionFailure {
		t.Fatalf("kind = %q, want %q", env.ErrorKind, registry.KindExecutionFailure)
	}
	if p.Outstanding() != 0 {
		t.Errorf("outstanding = %d after failure, want 0", p.Outstanding())
	}

	if p.Acquires() != 2 {
		t.Errorf("acquires = %d, want 2 (one per invocation)", p.Acquires())
	}
}

func TestInvoke_PoolErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"exhausted", pool.ErrExhausted, registry.KindPoolExhausted},
		{"deadline", context.DeadlineExceeded, registry.KindPoolExhausted},
		{"draining", pool.ErrDraining, registry.KindShutdownInProgress},
		{"wrapped exhausted", fmt.Errorf("acquire: %w", pool.ErrExhausted), registry.KindPoolExhausted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := newTestRegistry(t, &fakePool{acquireErr: tc.err}, registry.Options{})
			env := reg.Invoke(context.Background(), "ping", nil)
			if env.ErrorKind != tc.wantKind {
				t.Errorf("kind = %q, want %q", env.ErrorKind, tc.wantKind)
			}
		})
	}
}

func TestInvoke_RowCapAppliesThroughDispatch(t *testing.T) {
	reg := newTestRegistry(t, &fakePool{}, registry.Options{
		Limits: shape.Limits{MaxRows: 100},
	})

	env := reg.Invoke(context.Background(), "many_rows", nil)
	if env.Status != shape.StatusOK {
		t.Fatalf("many_rows failed: %+v", env)
	}
	payload := env.Payload.(shape.TablePayload)
	if len(payload.Rows) != 100 {
		t.Errorf("got %d rows, want 100", len(payload.Rows))
	}
	if payload.TotalRows != 250 {
		t.Errorf("total rows = %d, want 250", payload.TotalRows)
	}
	if !env.Truncated {
		t.Error("envelope should be marked truncated")
	}
}

func TestInvoke_RecordHookObservesOutcomes(t *testing.T) {
	var entries []registry.Entry
	reg := newTestRegistry(t, &fakePool{}, registry.Options{
		Record: func(e registry.Entry) { entries = append(entries, e) },
	})
	ctx := context.Background()

	reg.Invoke(ctx, "ping", nil)
	reg.Invoke(ctx, "no_such_op", nil)

	if len(entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(entries))
	}
	if entries[0].Status != shape.StatusOK || entries[0].Operation != "ping" {
		t.Errorf("first entry = %+v, want ok ping", entries[0])
	}
	if entries[1].ErrorKind != registry.KindUnknownOperation {
		t.Errorf("second entry kind = %q, want %q", entries[1].ErrorKind, registry.KindUnknownOperation)
	}
}
