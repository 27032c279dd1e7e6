package recordstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
)

// Record is an application-shaped record.
type Record map[string]any

// field pairs an application field with its backend column.
type field struct {
	app    string
	column string
}

// schema describes how one known table maps to application records.
type schema struct {
	fields []field

	// renames is true when read rows are projected back onto fields instead
	// of being returned whole.
	renames bool

	// defaults fills columns whose application value is falsy.
	defaults map[string]any
}

var schemas = map[string]schema{
	TableListings: {
		fields: sameNames("id", "title", "category", "price", "layout", "img", "status"),
		defaults: map[string]any{
			"status": "available",
		},
	},
	TableTenants: {
		fields: []field{
			{"id", "id"},
			{"user", "user_name"},
			{"gender", "gender"},
			{"phone", "phone"},
			{"house", "house"},
			{"price", "price"},
			{"idcard", "idcard"},
			{"start", "start_date"},
			{"end", "end_date"},
			{"stars", "stars"},
		},
		renames: true,
		defaults: map[string]any{
			"stars": int64(0),
		},
	},
	TableOrders: {
		fields: sameNames("id", "type", "name", "phone", "house", "time", "content", "status"),
	},
	TableContracts: {
		fields: []field{
			{"id", "id"},
			{"no", "contract_no"},
			{"name", "tenant_name"},
			{"idcard", "idcard"},
			{"house", "house"},
			{"period", "period"},
		},
		renames: true,
	},
}

func sameNames(names ...string) []field {
	fields := make([]field, len(names))
	for i, n := range names {
		fields[i] = field{app: n, column: n}
	}
	return fields
}

// ToRows converts application records into backend rows for table.
// Fields a known table does not map are dropped, and absent or null fields
// are omitted so that backend defaults apply. Records for other tables are
// passed through unchanged.
func ToRows(table string, records []Record) []backend.Row {
	rows := make([]backend.Row, 0, len(records))

	sc, known := schemas[table]
	for _, rec := range records {
		if !known {
			rows = append(rows, backend.Row(rec))
			continue
		}

		row := make(backend.Row, len(sc.fields))
		for _, f := range sc.fields {
			if v, ok := rec[f.app]; ok && v != nil {
				row[f.column] = v
			}
		}
		for column, def := range sc.defaults {
			if isFalsy(row[column]) {
				row[column] = def
			}
		}
		rows = append(rows, row)
	}

	return rows
}

// FromRows converts backend rows read from table into application records.
// Every known table gains a ts field computed from created_at; null columns
// are left out. Rows of other tables are returned unchanged.
func FromRows(table string, rows []backend.Row, now time.Time) []Record {
	records := make([]Record, 0, len(rows))

	sc, known := schemas[table]
	for _, row := range rows {
		if !known {
			records = append(records, Record(row))
			continue
		}

		var rec Record
		if sc.renames {
			rec = make(Record, len(sc.fields)+1)
			for _, f := range sc.fields {
				if v, ok := row[f.column]; ok && v != nil {
					rec[f.app] = v
				}
			}
		} else {
			rec = make(Record, len(row)+1)
			for k, v := range row {
				if v != nil {
					rec[k] = v
				}
			}
		}

		rec["ts"] = timestampMillis(row["created_at"], now)
		records = append(records, rec)
	}

	return records
}

// isFalsy reports whether v would be considered empty by a loosely typed
// caller: missing, null, false, zero, NaN or the empty string.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case int:
		return val == 0
	case int8:
		return val == 0
	case int16:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	case uint:
		return val == 0
	case uint8:
		return val == 0
	case uint16:
		return val == 0
	case uint32:
		return val == 0
	case uint64:
		return val == 0
	case float32:
		return val == 0 || math.IsNaN(float64(val))
	case float64:
		return val == 0 || math.IsNaN(val)
	case json.Number:
		f, err := val.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	default:
		return false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// timestampMillis converts a created_at value into epoch milliseconds,
// falling back to now when it is missing or unparseable.
func timestampMillis(v any, now time.Time) int64 {
	switch val := v.(type) {
	case time.Time:
		return val.UnixMilli()
	case string:
		if t, ok := parseTimestamp(val); ok {
			return t.UnixMilli()
		}
	case int64:
		return val
	case float64:
		return int64(val)
	}
	return now.UnixMilli()
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toRecords normalizes a Set value into records. Anything that is not a
// sequence yields no records; sequence elements that are not objects become
// empty records.
func toRecords(value any) ([]Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []Record:
		return v, nil
	case []map[string]any:
		records := make([]Record, len(v))
		for i, m := range v {
			records[i] = Record(m)
		}
		return records, nil
	case []backend.Row:
		records := make([]Record, len(v))
		for i, r := range v {
			records[i] = Record(r)
		}
		return records, nil
	case []any:
		records := make([]Record, len(v))
		for i, item := range v {
			rec, err := toRecord(item)
			if err != nil {
				return nil, fmt.Errorf("failed to convert record %d: %w", i, err)
			}
			records[i] = rec
		}
		return records, nil
	}

	// Typed slices are converted element by element. Anything else, including
	// values JSON cannot encode, is not a sequence.
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// Byte slices encode as JSON strings
		return nil, nil
	}

	records := make([]Record, rv.Len())
	for i := range records {
		rec, err := toRecord(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("failed to convert record %d: %w", i, err)
		}
		records[i] = rec
	}
	return records, nil
}

func toRecord(item any) (Record, error) {
	switch v := item.(type) {
	case Record:
		return v, nil
	case map[string]any:
		return Record(v), nil
	case backend.Row:
		return Record(v), nil
	case nil, string, bool, float64, float32, int, int64, int32, json.Number:
		return Record{}, nil
	}

	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map && rv.Kind() != reflect.Struct {
		return Record{}, nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := decodeJSON(data, &m); err != nil {
		// Not an object
		return Record{}, nil
	}
	return Record(m), nil
}

// decodeJSON decodes data keeping integers as int64.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	switch val := v.(type) {
	case *[]any:
		backend.NormalizeNumbers(*val)
	case *map[string]any:
		backend.NormalizeNumbers(*val)
	}
	return nil
}

// DecodeValue parses a JSON document into plain Go values. Integral
// numbers become int64 and other numbers float64, matching what the
// backends return.
func DecodeValue(data []byte) (any, error) {
	return backend.DecodeJSON(data)
}
