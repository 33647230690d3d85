package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

func TestTypeMapper_MapDatabaseType(t *testing.T) {
	mapper := NewTypeMapper()

	testCases := []struct {
		dbType       string
		expectedType transform.DeclaredType
	}{
		{"BIGINT", transform.TypeNumber},
		{"INTEGER", transform.TypeNumber},
		{"HUGEINT", transform.TypeNumber},
		{"DECIMAL(18,3)", transform.TypeNumber},
		{"decimal(5, 2)", transform.TypeNumber},
		{"DOUBLE", transform.TypeNumber},
		{"FIXED", transform.TypeNumber},
		{"INT4", transform.TypeNumber},
		{"UNSIGNED BIGINT", transform.TypeNumber},
		{"VARCHAR", transform.TypeText},
		{"NVARCHAR", transform.TypeText},
		{"BPCHAR", transform.TypeText},
		{"UUID", transform.TypeText},
		{"ENUM('a', 'b')", transform.TypeText},
		{"DATE", transform.TypeDateTime},
		{"TIMESTAMP", transform.TypeDateTime},
		{"TIMESTAMPTZ", transform.TypeDateTime},
		{"TIMESTAMP_NTZ", transform.TypeDateTime},
		{"DATETIME2", transform.TypeDateTime},
		{"TIME", transform.TypeDateTime},
		{"TIMETZ", transform.TypeTransientDateTime},
		{"time(6) with time zone", transform.TypeTransientDateTime},
		{"INTERVAL", transform.TypeInterval},
		{"BLOB", transform.TypeBinary},
		{"BYTEA", transform.TypeBinary},
		{"VARBINARY", transform.TypeBinary},
		{"BOOLEAN", transform.TypeOther},
		{"INTEGER[]", transform.TypeOther},
		{"STRUCT(a INTEGER)", transform.TypeOther},
		{"", transform.TypeOther},
		{"UNKNOWN_TYPE", transform.TypeOther},
	}

	for _, tc := range testCases {
		t.Run(tc.dbType, func(t *testing.T) {
			result := mapper.MapDatabaseType(tc.dbType)
			if diff := cmp.Diff(tc.expectedType, result); diff != "" {
				t.Errorf("MapDatabaseType(%s) mismatch (-want +got):\n%s", tc.dbType, diff)
			}
		})
	}
}

func TestDecimalText(t *testing.T) {
	testCases := []struct {
		name     string
		unscaled int64
		scale    uint8
		expected string
	}{
		{"Integer", 42, 0, "42"},
		{"Scaled", 12345, 2, "123.45"},
		{"KeepsTrailingZeros", 1250, 2, "12.50"},
		{"LeadingZeros", 5, 3, "0.005"},
		{"Negative", -7, 2, "-0.07"},
		{"Zero", 0, 4, "0.0000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecimalText(bigInt(tc.unscaled), tc.scale)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("DecimalText() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := DecimalText(nil, 2); got != "0" {
		t.Errorf("DecimalText(nil) = %q, want \"0\"", got)
	}
}
