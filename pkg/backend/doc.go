// Package backend defines the table-scoped capability that record stores are
// persisted through.
//
// A Client wraps an Executor and hands out Query builders scoped to a single
// table. Queries are composed as method chains and run with Execute:
//
//	rows, err := client.From("settings").
//		Select("value").
//		Eq("key", "hj_announce").
//		Single().
//		Execute(ctx)
//
// Executors are provided by pkg/stores (SQLite and PostgREST). Executors that
// can group several queries atomically also implement TxExecutor.
//
// Failures are reported as *Error values carrying a backend code. CodeNoRows
// is the distinguished "no row found" code for single-row lookups.
package backend
