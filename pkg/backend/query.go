package backend

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Row is a single backend row keyed by column name.
type Row map[string]any

// Action is the kind of statement a query performs.
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
)

// Filter restricts the rows a query applies to.
type Filter struct {
	Column   string
	Operator Operator
	Value    any
}

// Order is a single sort key for select queries.
type Order struct {
	Column    string
	Ascending bool
}

// Query is a table-scoped statement built through method chaining.
// The zero value is not usable; obtain queries from Client.From.
type Query struct {
	exec Executor

	Table      string
	Action     Action
	Columns    []string
	Filters    []Filter
	Orders     []Order
	Rows       []Row
	OnConflict string
	ExpectOne  bool
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is a plain SQL identifier. Column
// names chosen by callers for selects, filters and ordering must be plain.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ValidName reports whether name can be used as a table name or as a column
// of a written row. Executors quote names, so anything goes except control
// characters and the delimiters of a REST resource path.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune("/?#", r) {
			return false
		}
	}
	return true
}

// Select turns the query into a read of the given columns.
// An empty list or "*" selects every column.
func (q *Query) Select(columns ...string) *Query {
	q.Action = ActionSelect
	q.Columns = nil
	for _, c := range columns {
		for _, part := range strings.Split(c, ",") {
			part = strings.TrimSpace(part)
			if part == "" || part == "*" {
				continue
			}
			q.Columns = append(q.Columns, part)
		}
	}
	return q
}

// Order appends a sort key.
func (q *Query) Order(column string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Ascending: ascending})
	return q
}

// Eq restricts the query to rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Operator: OpEq, Value: value})
	return q
}

// Neq restricts the query to rows where column differs from value.
func (q *Query) Neq(column string, value any) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Operator: OpNeq, Value: value})
	return q
}

// Single requires the select to match exactly one row. Zero or several
// matches fail with CodeNoRows.
func (q *Query) Single() *Query {
	q.ExpectOne = true
	return q
}

// Insert turns the query into a bulk insert of rows.
func (q *Query) Insert(rows ...Row) *Query {
	q.Action = ActionInsert
	q.Rows = rows
	return q
}

// Upsert turns the query into an insert that overwrites rows colliding on
// the onConflict column.
func (q *Query) Upsert(rows []Row, onConflict string) *Query {
	q.Action = ActionUpsert
	q.Rows = rows
	q.OnConflict = onConflict
	return q
}

// Delete turns the query into a delete of every row matching the filters.
func (q *Query) Delete() *Query {
	q.Action = ActionDelete
	return q
}

// Execute runs the query against the executor it was created from.
// Select queries return the matching rows; writes return nil rows.
func (q *Query) Execute(ctx context.Context) ([]Row, error) {
	if q.exec == nil {
		return nil, NewError(CodeInvalidQuery, "query has no executor", nil)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q.exec.Execute(ctx, q)
}

// Validate checks that the query is well formed before it reaches an executor.
func (q *Query) Validate() error {
	if !ValidName(q.Table) {
		return NewError(CodeInvalidQuery, fmt.Sprintf("invalid table name %q", q.Table), nil)
	}

	for _, c := range q.Columns {
		if !ValidIdentifier(c) {
			return NewError(CodeInvalidQuery, fmt.Sprintf("invalid column name %q", c), nil)
		}
	}
	for _, f := range q.Filters {
		if !ValidIdentifier(f.Column) {
			return NewError(CodeInvalidQuery, fmt.Sprintf("invalid filter column %q", f.Column), nil)
		}
	}
	for _, o := range q.Orders {
		if !ValidIdentifier(o.Column) {
			return NewError(CodeInvalidQuery, fmt.Sprintf("invalid order column %q", o.Column), nil)
		}
	}

	switch q.Action {
	case ActionSelect:
	case ActionInsert, ActionUpsert:
		if len(q.Rows) == 0 {
			return NewError(CodeInvalidQuery, fmt.Sprintf("%s on %s has no rows", q.Action, q.Table), nil)
		}
		for _, row := range q.Rows {
			for column := range row {
				if !ValidName(column) {
					return NewError(CodeInvalidQuery, fmt.Sprintf("invalid column name %q", column), nil)
				}
			}
		}
		if q.Action == ActionUpsert && !ValidIdentifier(q.OnConflict) {
			return NewError(CodeInvalidQuery, fmt.Sprintf("invalid conflict column %q", q.OnConflict), nil)
		}
	case ActionDelete:
		if len(q.Filters) == 0 {
			return NewError(CodeUnfilteredDelete, fmt.Sprintf("delete on %s requires a filter", q.Table), nil)
		}
	default:
		return NewError(CodeInvalidQuery, fmt.Sprintf("no action set on query for %s", q.Table), nil)
	}

	return nil
}

// ColumnUnion returns the sorted union of the column names used by rows.
func ColumnUnion(rows []Row) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		for column := range row {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			columns = append(columns, column)
		}
	}
	sort.Strings(columns)
	return columns
}
