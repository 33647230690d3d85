// Package source adapts database/sql result sets into row sources for the CSV transform.
package source

import (
	"database/sql"
	"strings"

	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// TypeMapper maps engine type names, as reported by database/sql drivers, to the
// declared type families the transform plans with.
type TypeMapper struct {
	typeMapping map[string]transform.DeclaredType
}

// NewTypeMapper creates a mapper covering the DuckDB, PostgreSQL, MySQL, SQL Server,
// SQLite and Snowflake drivers.
func NewTypeMapper() *TypeMapper {
	number := transform.TypeNumber
	text := transform.TypeText
	date := transform.TypeDateTime
	binary := transform.TypeBinary

	return &TypeMapper{
		typeMapping: map[string]transform.DeclaredType{
			// Integers and exact numerics.
			"TINYINT": number, "SMALLINT": number, "INTEGER": number, "INT": number,
			"BIGINT": number, "HUGEINT": number, "UTINYINT": number, "USMALLINT": number,
			"UINTEGER": number, "UBIGINT": number, "UHUGEINT": number, "MEDIUMINT": number,
			"INT2": number, "INT4": number, "INT8": number, "SERIAL": number, "BIGSERIAL": number,
			"UNSIGNED TINYINT": number, "UNSIGNED SMALLINT": number, "UNSIGNED MEDIUMINT": number,
			"UNSIGNED INT": number, "UNSIGNED BIGINT": number, "YEAR": number,
			"DECIMAL": number, "NUMERIC": number, "NUMBER": number, "FIXED": number,
			"MONEY": number, "SMALLMONEY": number,
			// Approximate numerics.
			"FLOAT": number, "FLOAT4": number, "FLOAT8": number, "DOUBLE": number,
			"DOUBLE PRECISION": number, "REAL": number,

			// Character data.
			"VARCHAR": text, "CHAR": text, "BPCHAR": text, "TEXT": text, "STRING": text,
			"NVARCHAR": text, "NCHAR": text, "NTEXT": text, "TINYTEXT": text,
			"MEDIUMTEXT": text, "LONGTEXT": text, "CLOB": text, "NAME": text, "CITEXT": text,
			"UUID": text, "UNIQUEIDENTIFIER": text, "ENUM": text, "SET": text,
			"JSON": text, "JSONB": text, "XML": text, "VARIANT": text, "OBJECT": text, "ARRAY": text,

			// Storable dates and timestamps.
			"DATE": date, "DATETIME": date, "DATETIME2": date, "SMALLDATETIME": date,
			"DATETIMEOFFSET": date, "TIMESTAMP": date, "TIMESTAMPTZ": date,
			"TIMESTAMP_S": date, "TIMESTAMP_MS": date, "TIMESTAMP_NS": date,
			"TIMESTAMP WITH TIME ZONE": date, "TIMESTAMP_NTZ": date, "TIMESTAMP_LTZ": date,
			"TIMESTAMP_TZ": date, "TIME": date,

			// Temporal values that carry an offset but no date.
			"TIMETZ":              transform.TypeTransientDateTime,
			"TIME WITH TIME ZONE": transform.TypeTransientDateTime,

			"INTERVAL": transform.TypeInterval,

			// Raw bytes.
			"BLOB": binary, "BYTEA": binary, "BINARY": binary, "VARBINARY": binary,
			"IMAGE": binary, "TINYBLOB": binary, "MEDIUMBLOB": binary, "LONGBLOB": binary,
			"GEOMETRY": binary, "BIT": transform.TypeOther, "BITSTRING": transform.TypeOther,
		},
	}
}

// MapDatabaseType converts an engine type name to its declared type. Parameters such as
// "(18,3)" and list suffixes are ignored. Unknown names map to TypeOther and are rendered
// with their plain text form.
func (m *TypeMapper) MapDatabaseType(dbType string) transform.DeclaredType {
	name := baseTypeName(dbType)
	if strings.HasSuffix(strings.TrimSpace(dbType), "]") {
		return transform.TypeOther
	}
	if t, ok := m.typeMapping[name]; ok {
		return t
	}
	return transform.TypeOther
}

// Shapes describes the columns of a result set.
func (m *TypeMapper) Shapes(columnTypes []*sql.ColumnType) []transform.ColumnShape {
	shapes := make([]transform.ColumnShape, len(columnTypes))
	for i, ct := range columnTypes {
		dbType := ct.DatabaseTypeName()
		shapes[i] = transform.ColumnShape{
			Name:         ct.Name(),
			Type:         m.MapDatabaseType(dbType),
			DatabaseType: dbType,
		}
	}
	return shapes
}

// baseTypeName upper-cases dbType and drops parenthesized parameters, so that
// "time(6) with time zone" becomes "TIME WITH TIME ZONE".
func baseTypeName(dbType string) string {
	var b strings.Builder
	depth := 0
	for _, r := range strings.ToUpper(dbType) {
		switch {
		case r == '(':
			depth++
			b.WriteByte(' ')
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// defaultTypeMapper is the package-level type mapper instance.
var defaultTypeMapper = NewTypeMapper()

// MapDatabaseType is a convenience function using the default mapper.
func MapDatabaseType(dbType string) transform.DeclaredType {
	return defaultTypeMapper.MapDatabaseType(dbType)
}
