package csverr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"InvalidOptions", NewInvalidOptions("separator", "too long"), ErrInvalidOptions, true},
		{"Unsupported", NewUnsupportedColumnType("PAYLOAD", "BLOB"), ErrUnsupportedColumnType, true},
		{"Temporal", NewTransientTemporal("T", "TIME WITH TIME ZONE"), ErrUnsupportedColumnType, true},
		{"RowConversion", NewRowConversion("ID", 3, errors.New("bad")), ErrRowConversion, true},
		{"Unparsable", NewUnparsableQuery("empty SQL text"), ErrUnparsableQuery, true},
		{"Wrapped", fmt.Errorf("export: %w", NewUnparsableQuery("x")), ErrUnparsableQuery, true},
		{"DifferentCode", NewUnparsableQuery("x"), ErrInvalidOptions, false},
		{"PlainError", errors.New("x"), ErrInvalidOptions, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRowConversion(t *testing.T) {
	cause := errors.New("value 1.5 is not an integer")

	err := NewRowConversion("QTY", 7, cause)
	if got, want := err.Error(), "[ROW_CONVERSION_ERROR] cannot convert column 'QTY' of row 7: value 1.5 is not an integer"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
	if err.Column() != "QTY" || err.Row() != 7 {
		t.Errorf("Column() = %q, Row() = %d", err.Column(), err.Row())
	}

	unknown := NewRowConversion("QTY", 0, cause)
	if unknown.Row() != 0 {
		t.Errorf("Row() = %d, want 0", unknown.Row())
	}
	if _, ok := unknown.Data["row"]; ok {
		t.Error("row should not be recorded when unknown")
	}
}

func TestIsTransientTemporal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Temporal", NewTransientTemporal("T", "TIMETZ"), true},
		{"WrappedTemporal", fmt.Errorf("plan: %w", NewTransientTemporal("T", "TIMETZ")), true},
		{"Binary", NewUnsupportedColumnType("B", "BLOB"), false},
		{"OtherCode", NewInvalidOptions("x", "y"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientTemporal(tt.err); got != tt.want {
				t.Errorf("IsTransientTemporal() = %v, want %v", got, tt.want)
			}
		})
	}

	if msg := NewTransientTemporal("T", "TIMETZ").Error(); !strings.Contains(msg, "CAST") {
		t.Errorf("message should tell the caller to CAST, got %q", msg)
	}
}

func TestError_WithData(t *testing.T) {
	err := NewUnparsableQuery("x").WithData("position", 12)
	if err.Data["position"] != 12 {
		t.Errorf("Data[position] = %v, want 12", err.Data["position"])
	}

	bare := &Error{Code: CodeInvalidOptions}
	bare.WithData("option", "header")
	if bare.Data["option"] != "header" {
		t.Error("WithData should allocate the map")
	}
}
