package recordstore

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
)

func TestResolveTable(t *testing.T) {
	tests := []struct {
		key   string
		table string
		kind  Kind
	}{
		{KeyListings, TableListings, KindCollection},
		{KeyTenants, TableTenants, KindCollection},
		{KeyOrders, TableOrders, KindCollection},
		{KeyContracts, TableContracts, KindCollection},
		{KeyAnnounce, TableSettings, KindSettings},
		{KeyContractTemplate, TableSettings, KindSettings},
		{KeySignatureText, TableSettings, KindSettings},
		{"custom_table", "custom_table", KindPassThrough},
		{"listings", "listings", KindPassThrough},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := ResolveTable(tt.key); got != tt.table {
				t.Errorf("ResolveTable(%q) = %q, want %q", tt.key, got, tt.table)
			}
			if got := KindOf(tt.key); got != tt.kind {
				t.Errorf("KindOf(%q) = %q, want %q", tt.key, got, tt.kind)
			}
		})
	}
}

func TestKeyLists(t *testing.T) {
	if got := CollectionKeys(); !reflect.DeepEqual(got, []string{KeyContracts, KeyListings, KeyOrders, KeyTenants}) {
		t.Errorf("unexpected collection keys: %v", got)
	}
	if got := SettingsKeys(); !reflect.DeepEqual(got, []string{KeyAnnounce, KeyContractTemplate, KeySignatureText}) {
		t.Errorf("unexpected settings keys: %v", got)
	}
	if got := KnownKeys(); len(got) != 7 {
		t.Errorf("expected 7 known keys, got %v", got)
	}
}

func TestToRows(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		records []Record
		want    []backend.Row
	}{
		{
			name:  "listing status default",
			table: TableListings,
			records: []Record{
				{"id": "l1", "title": "Loft", "price": 2800, "extra": "dropped"},
				{"id": "l2", "status": "rented"},
				{"id": "l3", "status": ""},
			},
			want: []backend.Row{
				{"id": "l1", "title": "Loft", "price": 2800, "status": "available"},
				{"id": "l2", "status": "rented"},
				{"id": "l3", "status": "available"},
			},
		},
		{
			name:  "tenant renames and stars default",
			table: TableTenants,
			records: []Record{
				{"id": "t1", "user": "Li Lei", "start": "2024-01-01", "end": "2024-12-31", "stars": 4, "note": "x"},
				{"id": "t2", "user": "Han Meimei", "stars": 0},
			},
			want: []backend.Row{
				{"id": "t1", "user_name": "Li Lei", "start_date": "2024-01-01", "end_date": "2024-12-31", "stars": 4},
				{"id": "t2", "user_name": "Han Meimei", "stars": int64(0)},
			},
		},
		{
			name:    "order keeps names",
			table:   TableOrders,
			records: []Record{{"id": "o1", "type": "repair", "content": "leak", "ts": int64(5)}},
			want:    []backend.Row{{"id": "o1", "type": "repair", "content": "leak"}},
		},
		{
			name:    "contract renames",
			table:   TableContracts,
			records: []Record{{"id": "c1", "no": "HT-001", "name": "Li Lei", "period": "12m"}},
			want:    []backend.Row{{"id": "c1", "contract_no": "HT-001", "tenant_name": "Li Lei", "period": "12m"}},
		},
		{
			name:    "null fields omitted",
			table:   TableOrders,
			records: []Record{{"id": "o2", "phone": nil}},
			want:    []backend.Row{{"id": "o2"}},
		},
		{
			name:    "pass-through unchanged",
			table:   "custom_table",
			records: []Record{{"anything": 1, "ts": int64(9)}},
			want:    []backend.Row{{"anything": 1, "ts": int64(9)}},
		},
		{
			name:    "empty",
			table:   TableListings,
			records: nil,
			want:    []backend.Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRows(tt.table, tt.records)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromRows(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	created := "2024-05-01T10:00:00.000Z"
	createdMillis := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name  string
		table string
		rows  []backend.Row
		want  []Record
	}{
		{
			name:  "tenant renames",
			table: TableTenants,
			rows: []backend.Row{{
				"id": "t1", "user_name": "Li Lei", "gender": nil, "start_date": "2024-01-01",
				"end_date": "2024-12-31", "stars": int64(3), "created_at": created,
			}},
			want: []Record{{
				"id": "t1", "user": "Li Lei", "start": "2024-01-01", "end": "2024-12-31",
				"stars": int64(3), "ts": createdMillis,
			}},
		},
		{
			name:  "contract renames",
			table: TableContracts,
			rows:  []backend.Row{{"id": "c1", "contract_no": "HT-1", "tenant_name": "Li", "created_at": created}},
			want:  []Record{{"id": "c1", "no": "HT-1", "name": "Li", "ts": createdMillis}},
		},
		{
			name:  "listing identity",
			table: TableListings,
			rows:  []backend.Row{{"id": "l1", "status": "available", "img": nil, "created_at": created}},
			want:  []Record{{"id": "l1", "status": "available", "created_at": created, "ts": createdMillis}},
		},
		{
			name:  "order without created_at",
			table: TableOrders,
			rows:  []backend.Row{{"id": "o1"}},
			want:  []Record{{"id": "o1", "ts": now.UnixMilli()}},
		},
		{
			name:  "tenant with bad created_at",
			table: TableTenants,
			rows:  []backend.Row{{"id": "t2", "created_at": "yesterday"}},
			want:  []Record{{"id": "t2", "ts": now.UnixMilli()}},
		},
		{
			name:  "pass-through raw",
			table: "custom_table",
			rows:  []backend.Row{{"id": 1, "created_at": created, "blank": nil}},
			want:  []Record{{"id": 1, "created_at": created, "blank": nil}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRows(tt.table, tt.rows, now)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FromRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestampMillis(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"rfc3339 zulu", "2024-05-01T10:00:00Z", want},
		{"postgrest offset", "2024-05-01T10:00:00+00:00", want},
		{"postgrest micros", "2024-05-01T12:00:00.000000+02:00", want},
		{"sqlite datetime", "2024-05-01 10:00:00", want},
		{"postgres text", "2024-05-01 10:00:00+00", want},
		{"no zone", "2024-05-01T10:00:00", want},
		{"time value", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), want},
		{"epoch millis", want, want},
		{"missing", nil, now.UnixMilli()},
		{"garbage", "not a date", now.UnixMilli()},
		{"empty", "", now.UnixMilli()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timestampMillis(tt.in, now); got != tt.want {
				t.Errorf("timestampMillis(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsFalsy(t *testing.T) {
	falsy := []any{nil, false, "", 0, int64(0), 0.0, math.NaN(), uint8(0)}
	for _, v := range falsy {
		if !isFalsy(v) {
			t.Errorf("expected %v (%T) to be falsy", v, v)
		}
	}

	truthy := []any{true, "0", 1, -1, 0.5, Record{}, []any{}}
	for _, v := range truthy {
		if isFalsy(v) {
			t.Errorf("expected %v (%T) to be truthy", v, v)
		}
	}
}

type tenantInput struct {
	ID    int    `json:"id"`
	User  string `json:"user"`
	Stars int    `json:"stars"`
}

func TestToRecords(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []Record
	}{
		{"nil", nil, nil},
		{"string", "not a list", nil},
		{"number", 42, nil},
		{"object", map[string]any{"id": 1}, nil},
		{"records", []Record{{"id": "a"}}, []Record{{"id": "a"}}},
		{"maps", []map[string]any{{"id": "a"}}, []Record{{"id": "a"}}},
		{"any slice", []any{map[string]any{"id": "a"}, "junk"}, []Record{{"id": "a"}, {}}},
		{
			"structs",
			[]tenantInput{{ID: 7, User: "Li", Stars: 5}},
			[]Record{{"id": int64(7), "user": "Li", "stars": int64(5)}},
		},
		{
			"struct elements in any slice",
			[]any{tenantInput{ID: 8, User: "Wang"}},
			[]Record{{"id": int64(8), "user": "Wang", "stars": int64(0)}},
		},
		{"empty slice", []string{}, []Record{}},
		{"nan", math.NaN(), nil},
		{"chan", make(chan int), nil},
		{"func", func() {}, nil},
		{"bytes", []byte(`[{"id":"a"}]`), nil},
		{"array", [2]string{"a", "b"}, []Record{{}, {}}},
		{"pointer to slice", &[]Record{{"id": "a"}}, []Record{{"id": "a"}}},
		{"unencodable elements", []any{make(chan int), math.Inf(1)}, []Record{{}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toRecords(tt.value)
			if err != nil {
				t.Fatalf("toRecords failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("toRecords() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    any
		wantErr bool
	}{
		{"string", `"hello"`, "hello", false},
		{"integer", `42`, int64(42), false},
		{"float", `2.5`, 2.5, false},
		{"null", `null`, nil, false},
		{
			"records",
			`[{"id": 1, "price": 2800.5, "tags": ["a"]}]`,
			[]any{map[string]any{"id": int64(1), "price": 2800.5, "tags": []any{"a"}}},
			false,
		},
		{"broken", `[{`, nil, true},
		{"trailing", `1 2`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
