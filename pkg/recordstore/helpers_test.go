package recordstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
	"github.com/hjrent/hjstore/pkg/stores"
)

// setupSQLite creates a migrated in-memory SQLite store.
func setupSQLite(t *testing.T) *stores.SQLiteStore {
	t.Helper()

	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// faultExecutor fails queries matched by fail and forwards the rest.
// It hides any transaction support of the wrapped executor.
type faultExecutor struct {
	next backend.Executor
	fail func(q *backend.Query) error

	mu      sync.Mutex
	actions []backend.Action
}

func (f *faultExecutor) Execute(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	f.mu.Lock()
	f.actions = append(f.actions, q.Action)
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(q); err != nil {
			return nil, err
		}
	}
	return f.next.Execute(ctx, q)
}

// txFaultExecutor is a faultExecutor that keeps transaction support.
type txFaultExecutor struct {
	*faultExecutor
	tx backend.TxExecutor
}

func (f *txFaultExecutor) WithTx(ctx context.Context, fn func(tx backend.Executor) error) error {
	return f.tx.WithTx(ctx, func(tx backend.Executor) error {
		return fn(&faultExecutor{next: tx, fail: f.fail})
	})
}

func failAction(action backend.Action, err error) func(q *backend.Query) error {
	return func(q *backend.Query) error {
		if q.Action == action {
			return err
		}
		return nil
	}
}

var errBackendDown = backend.NewError(backend.CodeTransport, "failed to reach backend", fmt.Errorf("connection refused"))

// memExecutor is a non-transactional in-memory backend that creates tables
// on first insert.
type memExecutor struct {
	mu     sync.Mutex
	tables map[string][]backend.Row
	clock  time.Time
}

func newMemExecutor() *memExecutor {
	return &memExecutor{
		tables: make(map[string][]backend.Row),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memExecutor) Execute(_ context.Context, q *backend.Query) ([]backend.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch q.Action {
	case backend.ActionSelect:
		return m.selectRows(q)
	case backend.ActionInsert:
		m.clock = m.clock.Add(time.Second)
		for _, r := range q.Rows {
			row := copyRow(r)
			if _, ok := row["created_at"]; !ok {
				row["created_at"] = m.clock.Format(time.RFC3339Nano)
			}
			m.tables[q.Table] = append(m.tables[q.Table], row)
		}
		return nil, nil
	case backend.ActionUpsert:
		for _, r := range q.Rows {
			m.upsert(q.Table, q.OnConflict, copyRow(r))
		}
		return nil, nil
	case backend.ActionDelete:
		kept := m.tables[q.Table][:0:0]
		for _, row := range m.tables[q.Table] {
			if !matches(row, q.Filters) {
				kept = append(kept, row)
			}
		}
		m.tables[q.Table] = kept
		return nil, nil
	default:
		return nil, backend.NewError(backend.CodeInvalidQuery, "unsupported action", nil)
	}
}

func (m *memExecutor) selectRows(q *backend.Query) ([]backend.Row, error) {
	rows, ok := m.tables[q.Table]
	if !ok {
		return nil, backend.NewError(backend.CodeUndefinedTable, fmt.Sprintf("relation %q does not exist", q.Table), nil)
	}

	var out []backend.Row
	for _, row := range rows {
		if !matches(row, q.Filters) {
			continue
		}
		if len(q.Columns) == 0 {
			out = append(out, copyRow(row))
			continue
		}
		projected := make(backend.Row, len(q.Columns))
		for _, c := range q.Columns {
			projected[c] = row[c]
		}
		out = append(out, projected)
	}

	for i := len(q.Orders) - 1; i >= 0; i-- {
		o := q.Orders[i]
		sort.SliceStable(out, func(a, b int) bool {
			x, y := fmt.Sprint(out[a][o.Column]), fmt.Sprint(out[b][o.Column])
			if o.Ascending {
				return x < y
			}
			return x > y
		})
	}

	if q.ExpectOne && len(out) != 1 {
		return nil, &backend.Error{Code: backend.CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned"}
	}
	return out, nil
}

func (m *memExecutor) upsert(table, onConflict string, row backend.Row) {
	rows := m.tables[table]
	for i, existing := range rows {
		if reflect.DeepEqual(existing[onConflict], row[onConflict]) {
			for k, v := range row {
				existing[k] = v
			}
			rows[i] = existing
			return
		}
	}
	m.tables[table] = append(rows, row)
}

func (m *memExecutor) rows(table string) []backend.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table]
}

func matches(row backend.Row, filters []backend.Filter) bool {
	for _, f := range filters {
		equal := reflect.DeepEqual(row[f.Column], f.Value)
		if f.Operator == backend.OpEq && !equal {
			return false
		}
		if f.Operator == backend.OpNeq && equal {
			return false
		}
	}
	return true
}

func copyRow(r backend.Row) backend.Row {
	out := make(backend.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// stripTS removes the ts field so records can be compared with their input.
func stripTS(t *testing.T, records []Record) []Record {
	t.Helper()

	out := make([]Record, len(records))
	for i, rec := range records {
		if _, ok := rec["ts"].(int64); !ok {
			t.Fatalf("record %d: expected int64 ts, got %T", i, rec["ts"])
		}
		cp := make(Record, len(rec))
		for k, v := range rec {
			if k != "ts" {
				cp[k] = v
			}
		}
		out[i] = cp
	}
	return out
}
