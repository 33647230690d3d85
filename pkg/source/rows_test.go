package source

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// setupTestDuckDB creates an in-memory DuckDB database for testing.
func setupTestDuckDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open DuckDB: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB: %v", err)
		}
	})

	return db
}

func bigInt(n int64) *big.Int {
	return big.NewInt(n)
}

const sampleQuery = `SELECT
	1::INTEGER AS id,
	'a,b' AS name,
	12.50::DECIMAL(10,2) AS amount,
	INTERVAL '1 day 2 hours' AS span,
	DATE '2024-03-01' AS d,
	NULL::VARCHAR AS n`

func openRows(t *testing.T, db *sql.DB, query string) *Rows {
	t.Helper()

	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	src, err := NewRows(rows, nil)
	if err != nil {
		rows.Close()
		t.Fatalf("NewRows() error = %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestRows_Columns(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, sampleQuery)

	type col struct {
		Name string
		Type transform.DeclaredType
	}
	var got []col
	for _, c := range src.Columns() {
		got = append(got, col{Name: c.Name, Type: c.Type})
	}

	expected := []col{
		{"id", transform.TypeNumber},
		{"name", transform.TypeText},
		{"amount", transform.TypeNumber},
		{"span", transform.TypeInterval},
		{"d", transform.TypeDateTime},
		{"n", transform.TypeText},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_Next(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, sampleQuery)
	ctx := context.Background()

	row, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	expected := []any{
		int32(1),
		"a,b",
		"12.50",
		transform.Interval{Days: 1, Micros: 2 * 3600 * 1e6},
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		nil,
	}
	if diff := cmp.Diff(expected, row); diff != "" {
		t.Errorf("Next() mismatch (-want +got):\n%s", diff)
	}

	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("second Next() error = %v, want io.EOF", err)
	}
}

func TestRows_Stream(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, sampleQuery)
	ctx := context.Background()

	stream, err := transform.Open(src, transform.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var lines []string
	for {
		line, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("stream.Next() error = %v", err)
		}
		lines = append(lines, line)
	}

	expected := []string{
		`"id","name","amount","span","d","n"`,
		`1,"a,b",12.50,1 02:00:00,2024-03-01,`,
	}
	if diff := cmp.Diff(expected, lines); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_NestedValues(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, `SELECT [1, 2] AS l, {'a': 1, 'b': 'x'} AS s, MAP {'k': 2.5::DECIMAL(3,1)} AS m`)

	stream, err := transform.Open(src, transform.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var lines []string
	for {
		line, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("stream.Next() error = %v", err)
		}
		lines = append(lines, line)
	}

	expected := []string{
		`"l","s","m"`,
		`"[1,2]","{""a"":1,""b"":""x""}","{""k"":2.5}"`,
	}
	if diff := cmp.Diff(expected, lines); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_CanceledContext(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, "SELECT 1 AS x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestRows_BinaryColumnRejected(t *testing.T) {
	db := setupTestDuckDB(t)
	src := openRows(t, db, "SELECT 'abc'::BLOB AS payload")

	_, err := transform.Open(src, transform.DefaultOptions())
	if err == nil {
		t.Fatal("Open() expected error for BLOB column")
	}
}

func TestNormalize(t *testing.T) {
	uuidBytes := []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}

	testCases := []struct {
		name     string
		value    any
		col      transform.ColumnShape
		expected any
	}{
		{
			name:     "Nil",
			value:    nil,
			col:      transform.ColumnShape{Type: transform.TypeText},
			expected: nil,
		},
		{
			name:     "TextBytes",
			value:    []byte("hello"),
			col:      transform.ColumnShape{Type: transform.TypeText, DatabaseType: "VARCHAR"},
			expected: "hello",
		},
		{
			name:     "NumericBytes",
			value:    []byte("123.40"),
			col:      transform.ColumnShape{Type: transform.TypeNumber, DatabaseType: "DECIMAL"},
			expected: "123.40",
		},
		{
			name:     "BinaryBytes",
			value:    []byte{0, 1},
			col:      transform.ColumnShape{Type: transform.TypeBinary, DatabaseType: "BLOB"},
			expected: []byte{0, 1},
		},
		{
			name:     "UUIDBytes",
			value:    uuidBytes,
			col:      transform.ColumnShape{Type: transform.TypeText, DatabaseType: "UUID"},
			expected: "12345678-9abc-def0-1234-56789abcdef0",
		},
		{
			name:     "UniqueIdentifierBytes",
			value:    uuidBytes,
			col:      transform.ColumnShape{Type: transform.TypeText, DatabaseType: "UNIQUEIDENTIFIER"},
			expected: "78563412-BC9A-F0DE-1234-56789ABCDEF0",
		},
		{
			name:     "List",
			value:    []any{int32(1), nil, "x"},
			col:      transform.ColumnShape{Type: transform.TypeOther, DatabaseType: "INTEGER[]"},
			expected: `[1,null,"x"]`,
		},
		{
			name:     "Struct",
			value:    map[string]any{"b": []any{int64(2)}, "a": duckdb.Decimal{Width: 4, Scale: 2, Value: bigInt(150)}},
			col:      transform.ColumnShape{Type: transform.TypeOther, DatabaseType: "STRUCT(a DECIMAL(4,2), b BIGINT[])"},
			expected: `{"a":1.50,"b":[2]}`,
		},
		{
			name:     "Map",
			value:    duckdb.Map{int32(1): duckdb.Interval{Days: 2}},
			col:      transform.ColumnShape{Type: transform.TypeOther, DatabaseType: "MAP(INTEGER, INTERVAL)"},
			expected: `{"1":"2 00:00:00"}`,
		},
		{
			name:     "Union",
			value:    duckdb.Union{Tag: "s", Value: "text"},
			col:      transform.ColumnShape{Type: transform.TypeOther, DatabaseType: "UNION(s VARCHAR, i INTEGER)"},
			expected: "text",
		},
		{
			name:     "PassThrough",
			value:    int64(7),
			col:      transform.ColumnShape{Type: transform.TypeNumber},
			expected: int64(7),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.value, tc.col)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
