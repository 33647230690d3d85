package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeInvalidRequest, http.StatusBadRequest},
		{csverr.CodeInvalidOptions, http.StatusBadRequest},
		{csverr.CodeUnsupportedColumnType, http.StatusBadRequest},
		{csverr.CodeRowConversion, http.StatusBadRequest},
		{csverr.CodeUnparsableQuery, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeQueryFailed, http.StatusInternalServerError},
		{CodeInternalError, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := HTTPStatus(tt.code); got != tt.want {
				t.Errorf("HTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	cause := errors.New("strconv: bad digit")

	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
		wantData map[string]interface{}
	}{
		{
			name:     "InvalidOptions",
			err:      csverr.NewInvalidOptions("separator", "separator must be exactly one character"),
			wantCode: csverr.CodeInvalidOptions,
			wantMsg:  "invalid option 'separator': separator must be exactly one character",
			wantData: map[string]interface{}{"option": "separator"},
		},
		{
			name:     "RowConversionKeepsCause",
			err:      fmt.Errorf("export: %w", csverr.NewRowConversion("AMOUNT", 2, cause)),
			wantCode: csverr.CodeRowConversion,
			wantData: map[string]interface{}{"column": "AMOUNT", "row": int64(2), "cause": "strconv: bad digit"},
		},
		{
			name:     "APIErrorPassesThrough",
			err:      NewInvalidRequestError("sqlText is required"),
			wantCode: CodeInvalidRequest,
			wantMsg:  "sqlText is required",
			wantData: map[string]interface{}{},
		},
		{
			name:     "Deadline",
			err:      fmt.Errorf("query execution error: %w", context.DeadlineExceeded),
			wantCode: CodeTimeout,
			wantMsg:  "export did not finish in time",
			wantData: map[string]interface{}{},
		},
		{
			name:     "DatabaseError",
			err:      errors.New("Catalog Error: Table with name nope does not exist!"),
			wantCode: CodeQueryFailed,
			wantMsg:  "Catalog Error: Table with name nope does not exist!",
			wantData: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got == nil {
				t.Fatal("FromError() = nil")
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			for k, v := range tt.wantData {
				if diff := cmp.Diff(v, got.Data[k]); diff != "" {
					t.Errorf("Data[%q] mismatch (-want +got):\n%s", k, diff)
				}
			}
		})
	}

	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}
}

func TestAPIError_Is(t *testing.T) {
	err1 := NewInvalidRequestError("missing body")
	err2 := NewInvalidRequestError("different message")
	err3 := NewInternalError("boom")

	if !err1.Is(err2) {
		t.Error("errors with the same code should match")
	}
	if err1.Is(err3) {
		t.Error("errors with different codes should not match")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err1), err2) {
		t.Error("errors.Is should see through wrapping")
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("export", "abc")
	if err.Message != "export not found: abc" || err.Data["id"] != "abc" {
		t.Errorf("unexpected error %+v", err)
	}
	if err.Status() != http.StatusNotFound {
		t.Errorf("Status() = %d", err.Status())
	}
}

func TestAPIError_WithData(t *testing.T) {
	err := NewInvalidRequestError("bad field").WithData("field", "separator")
	if err.Data["field"] != "separator" {
		t.Errorf("Data[field] = %v, want separator", err.Data["field"])
	}
	if got := err.Error(); got != "[INVALID_REQUEST] bad field" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	apiErr := FromError(csverr.NewUnparsableQuery("empty SQL text"))

	if err := Write(rec, apiErr); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := ErrorResponse{
		Success: false,
		Code:    csverr.CodeUnparsableQuery,
		Message: apiErr.Message,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}
