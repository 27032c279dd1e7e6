package backend

import (
	"context"
	"fmt"
)

// Executor runs validated queries against a concrete backend.
type Executor interface {
	// Execute runs q and returns the selected rows. Writes return nil rows.
	Execute(ctx context.Context, q *Query) ([]Row, error)
}

// TxExecutor is an Executor that can run a group of queries atomically.
type TxExecutor interface {
	Executor

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Executor) error) error
}

// Client is the shared entry point to a backend. It is created once and
// reused for every call; connection reuse is left to the executor.
type Client struct {
	exec Executor
}

// NewClient creates a client over the given executor.
func NewClient(exec Executor) *Client {
	return &Client{exec: exec}
}

// From starts a query scoped to table.
func (c *Client) From(table string) *Query {
	return &Query{exec: c.exec, Table: table}
}

// SupportsTransactions reports whether Transaction can group queries atomically.
func (c *Client) SupportsTransactions() bool {
	_, ok := c.exec.(TxExecutor)
	return ok
}

// Transaction runs fn with a client whose queries share one transaction.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error) error {
	txExec, ok := c.exec.(TxExecutor)
	if !ok {
		return NewError(CodeTxUnsupported, fmt.Sprintf("%T does not support transactions", c.exec), nil)
	}
	return txExec.WithTx(ctx, func(tx Executor) error {
		return fn(NewClient(tx))
	})
}
