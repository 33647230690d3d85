// Package csverr defines the error taxonomy shared by the CSV transform, the query
// rewriter and the SQL-text entry points.
package csverr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeInvalidOptions        = "INVALID_OPTIONS"
	CodeUnsupportedColumnType = "UNSUPPORTED_COLUMN_TYPE"
	CodeRowConversion         = "ROW_CONVERSION_ERROR"
	CodeUnparsableQuery       = "UNPARSABLE_QUERY"
)

// Sentinels for errors.Is. Matching is done by code only.
var (
	ErrInvalidOptions        = &Error{Code: CodeInvalidOptions}
	ErrUnsupportedColumnType = &Error{Code: CodeUnsupportedColumnType}
	ErrRowConversion         = &Error{Code: CodeRowConversion}
	ErrUnparsableQuery       = &Error{Code: CodeUnparsableQuery}
)

// Error is a typed failure raised while planning, encoding or rewriting.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`

	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Is checks if this error matches another error by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithData adds data to the error.
func (e *Error) WithData(key string, value interface{}) *Error {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// Column returns the offending column name recorded on the error, if any.
func (e *Error) Column() string {
	s, _ := e.Data["column"].(string)
	return s
}

// Row returns the 1-based input row ordinal recorded on the error, or 0.
func (e *Error) Row() int64 {
	n, _ := e.Data["row"].(int64)
	return n
}

// NewInvalidOptions reports a malformed or missing mandatory option.
func NewInvalidOptions(option, reason string) *Error {
	return &Error{
		Code:    CodeInvalidOptions,
		Message: fmt.Sprintf("invalid option '%s': %s", option, reason),
		Data: map[string]interface{}{
			"option": option,
		},
	}
}

// NewUnsupportedColumnType reports a column whose type has no text representation.
func NewUnsupportedColumnType(column, databaseType string) *Error {
	return &Error{
		Code:    CodeUnsupportedColumnType,
		Message: fmt.Sprintf("column '%s' of type %s cannot be represented as text", column, databaseType),
		Data: map[string]interface{}{
			"column":       column,
			"databaseType": databaseType,
		},
	}
}

// NewTransientTemporal reports a temporal column that is not materialized as a storable
// date/time type. The message tells the caller how to fix the query.
func NewTransientTemporal(column, databaseType string) *Error {
	return &Error{
		Code: CodeUnsupportedColumnType,
		Message: fmt.Sprintf(
			"column '%s' has temporal type %s which cannot be converted to text; CAST it to TIMESTAMP or DATE in the query",
			column, databaseType),
		Data: map[string]interface{}{
			"column":       column,
			"databaseType": databaseType,
			"temporal":     true,
		},
	}
}

// NewRowConversion reports a value that failed conversion. row is the 1-based input row
// ordinal, or 0 when unknown.
func NewRowConversion(column string, row int64, err error) *Error {
	msg := fmt.Sprintf("cannot convert column '%s'", column)
	if row > 0 {
		msg = fmt.Sprintf("cannot convert column '%s' of row %d", column, row)
	}
	e := &Error{
		Code:    CodeRowConversion,
		Message: msg,
		Data: map[string]interface{}{
			"column": column,
		},
		err: err,
	}
	if row > 0 {
		e.Data["row"] = row
	}
	return e
}

// NewUnparsableQuery reports SQL text that could not be restructured safely.
func NewUnparsableQuery(reason string) *Error {
	return &Error{
		Code:    CodeUnparsableQuery,
		Message: reason,
		Data:    make(map[string]interface{}),
	}
}

// IsTransientTemporal reports whether err is an UnsupportedColumnType raised for a temporal
// column.
func IsTransientTemporal(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeUnsupportedColumnType {
		return false
	}
	t, _ := e.Data["temporal"].(bool)
	return t
}
