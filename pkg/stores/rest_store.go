package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/hjrent/hjstore/pkg/backend"
)

const (
	defaultRestPath    = "/rest/v1"
	defaultRESTTimeout = 30 * time.Second

	// healthTable exists in every hjstore schema.
	healthTable = "settings"
)

// restErrorPattern matches the "(code) message" errors postgrest-go builds
// from PostgREST error bodies.
var restErrorPattern = regexp.MustCompile(`^\(([^)]*)\) (.*)$`)

// RESTStore executes queries against a PostgREST endpoint, such as the REST
// API of a Supabase project. PostgREST offers no multi-request
// transactions, so RESTStore is a plain backend.Executor.
type RESTStore struct {
	client  *postgrest.Client
	timeout time.Duration
}

var _ Store = (*RESTStore)(nil)

// NewRESTStore creates a new REST store instance
func NewRESTStore(cfg RESTConfig) (*RESTStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("REST URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("REST API key is required")
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REST URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid REST URL scheme: %q", base.Scheme)
	}

	restPath := cfg.RestPath
	if restPath == "" {
		restPath = defaultRestPath
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultRESTTimeout
	}

	client := postgrest.NewClient(base.JoinPath(restPath).String(), cfg.Schema, map[string]string{
		"apikey":        cfg.APIKey,
		"Authorization": "Bearer " + cfg.APIKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to create REST client: %w", client.ClientError)
	}

	return &RESTStore{client: client, timeout: timeout}, nil
}

// Init is a no-op; the HTTP transport manages its own connections.
func (s *RESTStore) Init(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *RESTStore) Close() error {
	return nil
}

// HealthCheck sends a HEAD query for the settings table, which checks both
// reachability and the API key.
func (s *RESTStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := s.client.From(healthTable).Select("key", "", true).ExecuteWithContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", mapRESTError(err))
	}
	return nil
}

// Execute translates q into a PostgREST request.
func (s *RESTStore) Execute(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	builder, err := s.build(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, _, err := builder.ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapRESTError(err)
	}

	if q.Action != backend.ActionSelect {
		return nil, nil
	}

	if q.ExpectOne {
		var row backend.Row
		if err := json.Unmarshal(body, &row); err != nil {
			return nil, backend.NewError(backend.CodeInternal, "failed to decode row", err)
		}
		return []backend.Row{row}, nil
	}

	rows := []backend.Row{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, backend.NewError(backend.CodeInternal, "failed to decode rows", err)
	}
	return rows, nil
}

func (s *RESTStore) build(q *backend.Query) (*postgrest.FilterBuilder, error) {
	from := s.client.From(q.Table)

	var fb *postgrest.FilterBuilder
	switch q.Action {
	case backend.ActionSelect:
		fb = from.Select(selectParam(q.Columns), "", false)
		for _, o := range q.Orders {
			fb = fb.Order(o.Column, &postgrest.OrderOpts{Ascending: o.Ascending})
		}
	case backend.ActionInsert:
		fb = from.Insert(uniformRows(q.Rows), false, "", "minimal", "")
	case backend.ActionUpsert:
		fb = from.Upsert(uniformRows(q.Rows), q.OnConflict, "minimal", "")
	case backend.ActionDelete:
		fb = from.Delete("minimal", "")
	default:
		return nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("unsupported action %q", q.Action), nil)
	}

	for _, f := range q.Filters {
		value := formatFilterValue(f.Value)
		switch f.Operator {
		case backend.OpEq:
			fb = fb.Eq(f.Column, value)
		case backend.OpNeq:
			fb = fb.Neq(f.Column, value)
		default:
			return nil, backend.NewError(backend.CodeInvalidQuery, fmt.Sprintf("unsupported operator %q", f.Operator), nil)
		}
	}

	if q.ExpectOne {
		fb = fb.Single()
	}
	return fb, nil
}

// mapRESTError turns a postgrest-go error into a backend.Error. PostgREST
// error bodies keep their code, so PGRST116 stays a no-rows error.
func mapRESTError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return backend.NewError(backend.CodeTransport, "REST request failed", err)
	}

	m := restErrorPattern.FindStringSubmatch(err.Error())
	if m == nil || m[1] == "" {
		return backend.NewError(backend.CodeInternal, "unexpected REST response", err)
	}
	return &backend.Error{Code: m[1], Message: m[2], Err: err}
}

// uniformRows gives every row the same keys, filling gaps with null.
// PostgREST rejects bulk inserts whose objects have different keys.
func uniformRows(rows []backend.Row) []backend.Row {
	columns := backend.ColumnUnion(rows)
	out := make([]backend.Row, len(rows))
	for i, row := range rows {
		filled := make(backend.Row, len(columns))
		for _, c := range columns {
			filled[c] = row[c]
		}
		out[i] = filled
	}
	return out
}

func selectParam(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ",")
}

// formatFilterValue renders a filter operand the way PostgREST parses it.
func formatFilterValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return strings.Trim(string(data), `"`)
	}
}
