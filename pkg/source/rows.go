package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// Rows is a transform.RowSource over a live *sql.Rows. Driver specific values are
// normalized to the types the transform converts natively.
type Rows struct {
	rows    *sql.Rows
	columns []transform.ColumnShape
}

// NewRows describes rows with mapper. A nil mapper selects the default one.
func NewRows(rows *sql.Rows, mapper *TypeMapper) (*Rows, error) {
	if mapper == nil {
		mapper = defaultTypeMapper
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	return &Rows{rows: rows, columns: mapper.Shapes(columnTypes)}, nil
}

// Columns implements transform.RowSource.
func (r *Rows) Columns() []transform.ColumnShape {
	return r.columns
}

// Next implements transform.RowSource.
func (r *Rows) Next(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, io.EOF
	}

	values := make([]interface{}, len(r.columns))
	valuePtrs := make([]interface{}, len(r.columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := r.rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	for i, v := range values {
		values[i] = Normalize(v, r.columns[i])
	}
	return values, nil
}

// Close releases the underlying result set.
func (r *Rows) Close() error {
	return r.rows.Close()
}

// Normalize converts a scanned driver value into a value the transform understands.
func Normalize(v any, col transform.ColumnShape) any {
	switch x := v.(type) {
	case nil:
		return nil
	case duckdb.Interval:
		return transform.Interval{Months: x.Months, Days: x.Days, Micros: x.Micros}
	case duckdb.Decimal:
		return DecimalText(x.Value, x.Scale)
	case duckdb.Union:
		return Normalize(x.Value, col)
	case []byte:
		return bytesValue(x, col)
	case []any, map[string]any, duckdb.Map:
		return nestedText(x)
	}
	return v
}

// nestedText renders a LIST, STRUCT or MAP value as JSON text.
func nestedText(v any) string {
	b, err := json.Marshal(jsonValue(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonValue(e)
		}
		return out
	case duckdb.Map:
		out := make(map[string]any, len(x))
		for k, e := range x {
			key, ok := jsonValue(k).(string)
			if !ok {
				key = fmt.Sprint(jsonValue(k))
			}
			out[key] = jsonValue(e)
		}
		return out
	case duckdb.Union:
		return jsonValue(x.Value)
	case duckdb.Decimal:
		return json.Number(DecimalText(x.Value, x.Scale))
	case duckdb.Interval:
		return transform.Interval{Months: x.Months, Days: x.Days, Micros: x.Micros}.String()
	case duckdb.UUID:
		return uuid.UUID(x).String()
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
	}
	return v
}

func bytesValue(b []byte, col transform.ColumnShape) any {
	switch baseTypeName(col.DatabaseType) {
	case "UUID":
		if u, err := uuid.FromBytes(b); err == nil {
			return u.String()
		}
	case "UNIQUEIDENTIFIER":
		var u mssql.UniqueIdentifier
		if err := u.Scan(b); err == nil {
			return u.String()
		}
	}
	if col.Type == transform.TypeBinary {
		return b
	}
	return string(b)
}

// DecimalText renders an unscaled integer with scale digits after the decimal point.
func DecimalText(unscaled *big.Int, scale uint8) string {
	if unscaled == nil {
		return "0"
	}
	digits := new(big.Int).Abs(unscaled).String()
	sign := ""
	if unscaled.Sign() < 0 {
		sign = "-"
	}
	if scale == 0 {
		return sign + digits
	}
	n := int(scale)
	if len(digits) <= n {
		digits = strings.Repeat("0", n-len(digits)+1) + digits
	}
	cut := len(digits) - n
	return sign + digits[:cut] + "." + digits[cut:]
}
