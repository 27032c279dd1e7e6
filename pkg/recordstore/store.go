package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
	"github.com/hjrent/hjstore/pkg/telemetry"
)

// DeleteAllSentinel is an id no real row carries. Deleting every row whose
// id differs from it clears a table through backends that refuse
// unfiltered deletes, whatever the type of the ids.
const DeleteAllSentinel = "__impossible_id__"

// Operation statuses reported to metrics and spans.
const (
	statusOK    = "ok"
	statusEmpty = "empty"
	statusError = "error"
)

// Store is a key-value facade over backend tables.
//
// Get, Set and Del block the calling goroutine until the backend answers.
// Store holds no locks of its own. Concurrent Set calls on one collection
// are serialized by the backend when it supports transactions; otherwise
// they race and the table may briefly be observed empty.
type Store struct {
	client *backend.Client
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTelemetry instruments the store with tel.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Store) {
		if tel != nil {
			s.tel = tel
		}
	}
}

// WithLogger overrides the logger taken from telemetry.
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the clock used for settings timestamps and ts fallbacks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store on top of client.
func New(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		tel:    telemetry.NewNopTelemetry(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := s.logger
	if logger == nil {
		logger = s.tel.Logger
	}
	tel := *s.tel
	tel.Logger = logger.NewComponentLogger("recordstore")
	s.tel = &tel

	return s
}

// Get returns the value stored under key, or def when there is none or the
// read fails. Collections come back as []Record, newest first.
func (s *Store) Get(ctx context.Context, key string, def any) any {
	return s.Lookup(ctx, key).ValueOr(def)
}

// Lookup reads key and reports whether a value was found, the read was
// empty, or the backend failed. Failures are logged, never returned.
func (s *Store) Lookup(ctx context.Context, key string) Result {
	kind := KindOf(key)
	table := ResolveTable(key)

	op := s.tel.StartStoreOperation(ctx, "get", key, table, string(kind))

	var res Result
	if kind == KindSettings {
		res = s.lookupSetting(op, key)
	} else {
		res = s.lookupCollection(op, key, table)
	}
	res.Key, res.Table, res.Kind = key, table, kind

	switch res.Status {
	case StatusFound:
		op.Finish(statusOK, nil)
	case StatusEmpty:
		op.Finish(statusEmpty, nil)
	default:
		op.Logger.WithError(res.Err).Error("read failed, returning default")
		op.Finish(statusError, res.Err)
	}

	return res
}

func (s *Store) lookupSetting(op *telemetry.StoreOperation, key string) Result {
	rows, err := s.execute(op.Ctx, s.client.From(TableSettings).
		Select("value").
		Eq("key", key).
		Single())
	if err != nil {
		if backend.IsNoRows(err) {
			s.recordFallback(key, TableSettings, KindSettings, "not_found")
			return Result{Status: StatusEmpty}
		}
		s.recordFallback(key, TableSettings, KindSettings, "error")
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to get setting %s: %w", key, err)}
	}

	if len(rows) == 0 || rows[0]["value"] == nil {
		s.recordFallback(key, TableSettings, KindSettings, "null")
		return Result{Status: StatusEmpty}
	}
	return Result{Status: StatusFound, Value: rows[0]["value"]}
}

func (s *Store) lookupCollection(op *telemetry.StoreOperation, key, table string) Result {
	kind := KindOf(key)

	rows, err := s.execute(op.Ctx, s.client.From(table).
		Select("*").
		Order("created_at", false))
	if err != nil {
		s.recordFallback(key, table, kind, "error")
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to read %s: %w", table, err)}
	}

	if len(rows) == 0 {
		s.recordFallback(key, table, kind, "empty")
		return Result{Status: StatusEmpty}
	}

	telemetry.AddRowsEvent(op.Span, "rows.read", len(rows))
	return Result{Status: StatusFound, Value: FromRows(table, rows, s.now())}
}

// Set stores value under key. For a settings key the value is upserted.
// For a collection the table is replaced so that it holds exactly value,
// which must be a sequence of records. Any other value clears the table,
// even one JSON cannot encode such as NaN.
//
// Field values read back with their JSON types: strings, int64 or float64
// numbers, booleans, and nested objects or arrays as map[string]any and
// []any.
//
// On a backend with transactions the replace is atomic. Otherwise the
// table is cleared before the insert, and a failed insert leaves it empty.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	kind := KindOf(key)
	table := ResolveTable(key)

	op := s.tel.StartStoreOperation(ctx, "set", key, table, string(kind))

	var err error
	if kind == KindSettings {
		err = s.setSetting(op, key, value)
	} else {
		err = s.replaceCollection(op, key, table, value)
	}

	if err != nil {
		op.Logger.WithError(err).Error("write failed")
		_ = s.tel.Events.PublishWriteFailed(key, table, "set", err.Error())
		op.Finish(statusError, err)
		return err
	}

	op.Finish(statusOK, nil)
	return nil
}

func (s *Store) setSetting(op *telemetry.StoreOperation, key string, value any) error {
	row := backend.Row{
		"key":        key,
		"value":      value,
		"updated_at": s.now().UTC().Format(time.RFC3339Nano),
	}

	if _, err := s.execute(op.Ctx, s.client.From(TableSettings).Upsert([]backend.Row{row}, "key")); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	s.tel.Metrics.RecordRowsWritten(TableSettings, 1)
	_ = s.tel.Events.PublishSettingUpdated(key)
	return nil
}

func (s *Store) replaceCollection(op *telemetry.StoreOperation, key, table string, value any) error {
	records, err := toRecords(value)
	if err != nil {
		return fmt.Errorf("failed to convert value for %s: %w", key, err)
	}
	rows := ToRows(table, records)

	replace := func(c *backend.Client) error {
		if err := s.clearTable(op.Ctx, c, table); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := s.execute(op.Ctx, c.From(table).Insert(rows...)); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	if s.client.SupportsTransactions() {
		err = s.client.Transaction(op.Ctx, replace)
	} else {
		err = replace(s.client)
	}
	if err != nil {
		return err
	}

	telemetry.AddRowsEvent(op.Span, "rows.written", len(rows))
	s.tel.Metrics.RecordRowsWritten(table, len(rows))
	_ = s.tel.Events.PublishCollectionReplaced(key, table, len(rows))
	return nil
}

// Del removes key. Failures are logged and otherwise ignored.
func (s *Store) Del(ctx context.Context, key string) {
	kind := KindOf(key)
	table := ResolveTable(key)

	op := s.tel.StartStoreOperation(ctx, "del", key, table, string(kind))

	var err error
	if kind == KindSettings {
		_, err = s.execute(op.Ctx, s.client.From(TableSettings).Delete().Eq("key", key))
		if err == nil {
			_ = s.tel.Events.PublishSettingDeleted(key)
		}
	} else {
		err = s.clearTable(op.Ctx, s.client, table)
		if err == nil {
			_ = s.tel.Events.PublishCollectionCleared(key, table)
		}
	}

	if err != nil {
		op.Logger.WithError(err).Warn("delete failed, ignoring")
		_ = s.tel.Events.PublishWriteFailed(key, table, "del", err.Error())
		op.Finish(statusError, err)
		return
	}

	op.Finish(statusOK, nil)
}

func (s *Store) clearTable(ctx context.Context, c *backend.Client, table string) error {
	if _, err := s.execute(ctx, c.From(table).Delete().Neq("id", DeleteAllSentinel)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

// execute runs q inside a backend span and counts failures by code.
func (s *Store) execute(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	ctx, span := s.tel.Tracer.StartBackendSpan(ctx, string(q.Action), q.Table)
	defer span.End()

	rows, err := q.Execute(ctx)
	if err != nil {
		code := backend.CodeOf(err)
		if code != backend.CodeNoRows {
			s.tel.Metrics.RecordBackendError(string(q.Action), code)
		}
		telemetry.SetAttributes(span, telemetry.AttrErrorCode.String(code))
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.RecordSuccess(span)
	return rows, nil
}

func (s *Store) recordFallback(key, table string, kind Kind, reason string) {
	s.tel.Metrics.RecordReadFallback(string(kind), reason)
	_ = s.tel.Events.PublishReadDefaulted(key, table, reason)
}
