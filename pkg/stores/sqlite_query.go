package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func executeSQL(ctx context.Context, db queryer, q *backend.Query) ([]backend.Row, error) {
	switch q.Action {
	case backend.ActionSelect:
		return selectRows(ctx, db, q)
	case backend.ActionInsert:
		return nil, insertRows(ctx, db, q)
	case backend.ActionUpsert:
		return nil, insertRows(ctx, db, q)
	case backend.ActionDelete:
		return nil, deleteRows(ctx, db, q)
	default:
		return nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("unsupported action %q", q.Action), nil)
	}
}

func selectRows(ctx context.Context, db queryer, q *backend.Query) ([]backend.Row, error) {
	columns := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = quoteIdent(c)
		}
		columns = strings.Join(quoted, ", ")
	}

	where, args, err := whereClause(q.Filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s", columns, quoteIdent(q.Table), where, orderClause(q.Orders))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError("select from "+q.Table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, mapSQLiteError("read columns of "+q.Table, err)
	}

	result := []backend.Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapSQLiteError("scan row of "+q.Table, err)
		}

		row := make(backend.Row, len(names))
		for i, name := range names {
			row[name] = columnValue(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError("iterate rows of "+q.Table, err)
	}

	if q.ExpectOne && len(result) != 1 {
		return nil, &backend.Error{
			Code:    backend.CodeNoRows,
			Message: "JSON object requested, multiple (or no) rows returned",
			Details: fmt.Sprintf("The result contains %d rows", len(result)),
			Status:  406,
		}
	}

	return result, nil
}

// batchTimeLayout matches the created_at column default.
const batchTimeLayout = "2006-01-02T15:04:05.000Z"

func insertRows(ctx context.Context, db queryer, q *backend.Query) error {
	// One INSERT statement per row would give each row its own created_at;
	// rows of one batch share a timestamp instead.
	var batchTime string
	if q.Action == backend.ActionInsert {
		has, err := hasColumn(ctx, db, q.Table, "created_at")
		if err != nil {
			return err
		}
		if has {
			batchTime = time.Now().UTC().Format(batchTimeLayout)
		}
	}

	for _, row := range q.Rows {
		if batchTime != "" {
			if _, ok := row["created_at"]; !ok {
				stamped := make(backend.Row, len(row)+1)
				for k, v := range row {
					stamped[k] = v
				}
				stamped["created_at"] = batchTime
				row = stamped
			}
		}

		query, args, err := insertStatement(q, row)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return mapSQLiteError(fmt.Sprintf("%s into %s", q.Action, q.Table), err)
		}
	}
	return nil
}

func insertStatement(q *backend.Query, row backend.Row) (string, []any, error) {
	table := quoteIdent(q.Table)
	if len(row) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table), nil, nil
	}

	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		v, err := bindValue(row[c])
		if err != nil {
			return "", nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("cannot encode column %s", c), err)
		}
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if q.Action == backend.ActionUpsert {
		var updates []string
		for _, c := range columns {
			if c == q.OnConflict {
				continue
			}
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
		}
		if len(updates) == 0 {
			query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quoteIdent(q.OnConflict))
		} else {
			query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", quoteIdent(q.OnConflict), strings.Join(updates, ", "))
		}
	}

	return query, args, nil
}

func hasColumn(ctx context.Context, db queryer, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return false, mapSQLiteError("inspect "+table, err)
	}
	defer rows.Close()

	found := false
	exists := false
	for rows.Next() {
		exists = true
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, mapSQLiteError("inspect "+table, err)
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, mapSQLiteError("inspect "+table, err)
	}
	if !exists {
		return false, backend.NewError(backend.CodeUndefinedTable, "failed to insert into "+table,
			fmt.Errorf("no such table: %s", table))
	}

	return found, nil
}

func deleteRows(ctx context.Context, db queryer, q *backend.Query) error {
	where, args, err := whereClause(q.Filters)
	if err != nil {
		return err
	}
	if where == "" {
		return backend.NewError(backend.CodeUnfilteredDelete, fmt.Sprintf("delete on %s requires a filter", q.Table), nil)
	}

	query := fmt.Sprintf("DELETE FROM %s%s", quoteIdent(q.Table), where)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return mapSQLiteError("delete from "+q.Table, err)
	}
	return nil
}

func whereClause(filters []backend.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	parts := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		v, err := bindValue(f.Value)
		if err != nil {
			return "", nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("cannot encode filter on %s", f.Column), err)
		}
		switch f.Operator {
		case backend.OpEq:
			parts[i] = quoteIdent(f.Column) + " = ?"
		case backend.OpNeq:
			parts[i] = quoteIdent(f.Column) + " <> ?"
		default:
			return "", nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("unsupported operator %q", f.Operator), nil)
		}
		args[i] = v
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// orderClause appends rowid as a final key so rows inserted in one batch,
// which share a created_at value, come back in insertion order.
func orderClause(orders []backend.Order) string {
	if len(orders) == 0 {
		return ""
	}

	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		dir := "DESC"
		if o.Ascending {
			dir = "ASC"
		}
		parts = append(parts, quoteIdent(o.Column)+" "+dir)
	}
	parts = append(parts, "rowid ASC")

	return " ORDER BY " + strings.Join(parts, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// bindValue converts an application value into one the driver accepts.
// Booleans, nested objects and arrays are stored as JSON in a BLOB so that
// columnValue can tell them apart from TEXT and decode them again.
func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string,
		int, int8, int16, int32, int64,
		uint8, uint16, uint32,
		float32, float64:
		return val, nil
	case []byte:
		return string(val), nil
	case uint:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

// columnValue converts a scanned column back into an application value.
func columnValue(v any) any {
	switch val := v.(type) {
	case []byte:
		decoded, err := backend.DecodeJSON(val)
		if err != nil {
			return string(val)
		}
		return decoded
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return val
	}
}

// mapSQLiteError converts a driver error into a backend error.
func mapSQLiteError(op string, err error) error {
	var be *backend.Error
	if errors.As(err, &be) {
		return err
	}

	msg := err.Error()
	code := backend.CodeInternal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = backend.CodeTransport
	case strings.Contains(msg, "no such table"):
		code = backend.CodeUndefinedTable
	case strings.Contains(msg, "UNIQUE constraint failed"):
		code = backend.CodeUniqueViolation
	}

	return backend.NewError(code, "failed to "+op, err)
}
