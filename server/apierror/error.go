// Package apierror maps service errors onto the JSON error envelope returned over HTTP.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// Error codes besides the csverr codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeQueryFailed    = "QUERY_FAILED"
	CodeTimeout        = "TIMEOUT"
	CodeInternalError  = "INTERNAL_ERROR"
)

// HTTPStatus returns the HTTP status for a given error code.
func HTTPStatus(code string) int {
	mapping := map[string]int{
		CodeInvalidRequest:               http.StatusBadRequest,
		csverr.CodeInvalidOptions:        http.StatusBadRequest,
		csverr.CodeUnsupportedColumnType: http.StatusBadRequest,
		csverr.CodeRowConversion:         http.StatusBadRequest,
		csverr.CodeUnparsableQuery:       http.StatusBadRequest,
		CodeTimeout:                      http.StatusGatewayTimeout,
	}

	if status, ok := mapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// APIError is an error as reported to HTTP clients.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Status returns the HTTP status for the error.
func (e *APIError) Status() int {
	return HTTPStatus(e.Code)
}

// WithData adds data to the error.
func (e *APIError) WithData(key string, value interface{}) *APIError {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// Is checks if this error matches another error by code.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if errors.As(target, &apiErr) {
		return e.Code == apiErr.Code
	}
	return false
}

// ErrorResponse represents the JSON response structure for errors.
// This is the unified response type used by all handlers.
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ToResponse converts the APIError to an ErrorResponse.
func (e *APIError) ToResponse() *ErrorResponse {
	data := make(map[string]interface{})

	// Copy data from error
	for k, v := range e.Data {
		data[k] = v
	}

	return &ErrorResponse{
		Success: false,
		Message: e.Message,
		Code:    e.Code,
		Data:    data,
	}
}

// NewInvalidRequestError creates an error for a malformed request.
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:    CodeInvalidRequest,
		Message: message,
		Data:    make(map[string]interface{}),
	}
}

// NewNotFoundError creates an error for a missing resource.
func NewNotFoundError(kind, id string) *APIError {
	return &APIError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Data:    map[string]interface{}{"id": id},
	}
}

// NewConflictError creates an error for a request that does not fit the resource state.
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:    CodeConflict,
		Message: message,
		Data:    make(map[string]interface{}),
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:    CodeInternalError,
		Message: message,
		Data:    make(map[string]interface{}),
	}
}

// FromError converts an error to an APIError.
// An *APIError is returned as-is, a *csverr.Error keeps its code and data, a deadline
// becomes a timeout and anything else is reported as a failed query.
// If the error is nil, it returns nil.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var cerr *csverr.Error
	if errors.As(err, &cerr) {
		out := &APIError{
			Code:    cerr.Code,
			Message: cerr.Message,
			Data:    make(map[string]interface{}),
		}
		for k, v := range cerr.Data {
			out.Data[k] = v
		}
		if cause := errors.Unwrap(cerr); cause != nil {
			out.Data["cause"] = cause.Error()
		}
		return out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			Code:    CodeTimeout,
			Message: "export did not finish in time",
			Data:    make(map[string]interface{}),
		}
	}

	return &APIError{
		Code:    CodeQueryFailed,
		Message: err.Error(),
		Data:    make(map[string]interface{}),
	}
}

// Write sends err as a JSON error envelope with its HTTP status.
func Write(w http.ResponseWriter, err *APIError) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	return json.NewEncoder(w).Encode(err.ToResponse())
}
