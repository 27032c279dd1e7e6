package backend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// recordingExecutor captures the queries it receives.
type recordingExecutor struct {
	queries []*Query
	rows    []Row
	err     error
}

func (r *recordingExecutor) Execute(_ context.Context, q *Query) ([]Row, error) {
	r.queries = append(r.queries, q)
	return r.rows, r.err
}

type txRecordingExecutor struct {
	recordingExecutor
	txCalls int
}

func (r *txRecordingExecutor) WithTx(_ context.Context, fn func(tx Executor) error) error {
	r.txCalls++
	return fn(&r.recordingExecutor)
}

func TestQueryBuilderChaining(t *testing.T) {
	exec := &recordingExecutor{rows: []Row{{"value": "hello"}}}
	client := NewClient(exec)

	rows, err := client.From("settings").
		Select("value").
		Eq("key", "hj_announce").
		Single().
		Execute(context.Background())
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["value"] != "hello" {
		t.Errorf("unexpected rows: %v", rows)
	}

	if len(exec.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(exec.queries))
	}
	q := exec.queries[0]
	if q.Table != "settings" {
		t.Errorf("expected table settings, got %s", q.Table)
	}
	if q.Action != ActionSelect {
		t.Errorf("expected select, got %s", q.Action)
	}
	if !reflect.DeepEqual(q.Columns, []string{"value"}) {
		t.Errorf("unexpected columns: %v", q.Columns)
	}
	if !q.ExpectOne {
		t.Error("expected single-row query")
	}
	want := []Filter{{Column: "key", Operator: OpEq, Value: "hj_announce"}}
	if !reflect.DeepEqual(q.Filters, want) {
		t.Errorf("unexpected filters: %v", q.Filters)
	}
}

func TestSelectStar(t *testing.T) {
	q := NewClient(&recordingExecutor{}).From("listings").Select("*").Order("created_at", false)
	if len(q.Columns) != 0 {
		t.Errorf("expected all columns, got %v", q.Columns)
	}
	if !reflect.DeepEqual(q.Orders, []Order{{Column: "created_at", Ascending: false}}) {
		t.Errorf("unexpected order: %v", q.Orders)
	}

	q = NewClient(&recordingExecutor{}).From("listings").Select("id, title")
	if !reflect.DeepEqual(q.Columns, []string{"id", "title"}) {
		t.Errorf("expected split columns, got %v", q.Columns)
	}
}

func TestQueryValidate(t *testing.T) {
	client := NewClient(&recordingExecutor{})

	tests := []struct {
		name  string
		query *Query
		code  string
	}{
		{"select ok", client.From("listings").Select(), ""},
		{"dashed table", client.From("custom-table").Select(), ""},
		{"table with slash", client.From("a/b").Select(), CodeInvalidQuery},
		{"table with control char", client.From("a\x00b").Select(), CodeInvalidQuery},
		{"empty table", client.From("").Select(), CodeInvalidQuery},
		{"bad column", client.From("listings").Select("id;drop"), CodeInvalidQuery},
		{"bad filter", client.From("listings").Select().Eq("a b", 1), CodeInvalidQuery},
		{"bad order", client.From("listings").Select().Order("x)", true), CodeInvalidQuery},
		{"no action", client.From("listings"), CodeInvalidQuery},
		{"insert without rows", client.From("listings").Insert(), CodeInvalidQuery},
		{"insert free-form column", client.From("custom-table").Insert(Row{"first name": 1}), ""},
		{"insert bad column", client.From("listings").Insert(Row{"bad\ncol": 1}), CodeInvalidQuery},
		{"insert ok", client.From("listings").Insert(Row{"id": 1}), ""},
		{"upsert no conflict column", client.From("settings").Upsert([]Row{{"key": "k"}}, ""), CodeInvalidQuery},
		{"upsert ok", client.From("settings").Upsert([]Row{{"key": "k"}}, "key"), ""},
		{"unfiltered delete", client.From("listings").Delete(), CodeUnfilteredDelete},
		{"sentinel delete", client.From("listings").Delete().Neq("id", "__impossible_id__"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("expected valid query, got %v", err)
				}
				return
			}
			if got := CodeOf(err); got != tt.code {
				t.Errorf("expected code %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}

func TestExecuteSkipsExecutorOnInvalidQuery(t *testing.T) {
	exec := &recordingExecutor{}
	_, err := NewClient(exec).From("listings").Delete().Execute(context.Background())
	if CodeOf(err) != CodeUnfilteredDelete {
		t.Fatalf("expected unfiltered delete error, got %v", err)
	}
	if len(exec.queries) != 0 {
		t.Errorf("executor should not be called, got %d queries", len(exec.queries))
	}
}

func TestTransaction(t *testing.T) {
	plain := NewClient(&recordingExecutor{})
	if plain.SupportsTransactions() {
		t.Error("plain executor should not support transactions")
	}
	err := plain.Transaction(context.Background(), func(*Client) error { return nil })
	if CodeOf(err) != CodeTxUnsupported {
		t.Errorf("expected tx unsupported, got %v", err)
	}

	exec := &txRecordingExecutor{}
	client := NewClient(exec)
	if !client.SupportsTransactions() {
		t.Fatal("tx executor should support transactions")
	}

	err = client.Transaction(context.Background(), func(tx *Client) error {
		_, err := tx.From("listings").Delete().Neq("id", "x").Execute(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if exec.txCalls != 1 {
		t.Errorf("expected 1 transaction, got %d", exec.txCalls)
	}
	if len(exec.queries) != 1 || exec.queries[0].Action != ActionDelete {
		t.Errorf("expected delete inside transaction, got %v", exec.queries)
	}
}

func TestColumnUnion(t *testing.T) {
	rows := []Row{{"b": 1, "a": 2}, {"c": 3, "a": 4}}
	if got := ColumnUnion(rows); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected union: %v", got)
	}
}

func TestErrorHelpers(t *testing.T) {
	base := &Error{Code: CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned", Details: "The result contains 0 rows"}
	wrapped := fmt.Errorf("failed to get setting: %w", base)

	if !IsNoRows(wrapped) {
		t.Error("expected wrapped error to be no-rows")
	}
	if !errors.Is(wrapped, &Error{Code: CodeNoRows}) {
		t.Error("expected errors.Is to match on code")
	}
	if IsNoRows(errors.New("plain")) {
		t.Error("plain error must not be no-rows")
	}
	if CodeOf(nil) != "" {
		t.Error("nil error has no code")
	}

	cause := errors.New("disk I/O error")
	err := NewError(CodeInternal, "query failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected unwrap to reach cause")
	}
	if got := err.Error(); got != "[INTERNAL] query failed: disk I/O error" {
		t.Errorf("unexpected message: %s", got)
	}
	if got := base.Error(); got != "[PGRST116] JSON object requested, multiple (or no) rows returned (The result contains 0 rows)" {
		t.Errorf("unexpected message: %s", got)
	}
}
