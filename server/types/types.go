// Package types provides request and response types for the CSV export API.
package types

// ExportRequest is the body of POST /api/v1/csv and POST /api/v1/rewrite.
// Pointer fields distinguish an omitted flag from an explicit false.
type ExportRequest struct {
	SQLText               string `json:"sqlText"`
	Header                *bool  `json:"header,omitempty"`
	Separator             string `json:"separator,omitempty"`
	ProtectNumericStrings *bool  `json:"protectNumericStrings,omitempty"`
	NumberFormat          string `json:"numberFormat,omitempty"`
	DateFormat            string `json:"dateFormat,omitempty"`
	IntervalFormat        string `json:"intervalFormat,omitempty"`
	LineTerminator        string `json:"lineTerminator,omitempty"` // "LF" or "CRLF"
}

// FileExportRequest is the body of POST /api/v1/csv/files.
type FileExportRequest struct {
	ExportRequest
	FileName     string `json:"fileName,omitempty"` // relative to the export directory
	Encoding     string `json:"encoding,omitempty"` // WHATWG label, UTF-8 when empty
	NormalizeNFC bool   `json:"normalizeNfc,omitempty"`
	Overwrite    bool   `json:"overwrite,omitempty"`
	Async        bool   `json:"async,omitempty"` // return at once and run the export in the background
}

// FileExportResponse reports the state of a file export. Result fields are set once
// the export succeeded; Code and Message once it failed.
type FileExportResponse struct {
	Success   bool   `json:"success"`
	ExportID  string `json:"exportId"`
	Status    string `json:"status"` // pending, running, success, failed or canceled
	StatusURL string `json:"statusUrl,omitempty"`
	FileName  string `json:"fileName"`
	Encoding  string `json:"encoding,omitempty"`
	RowCount  int64  `json:"rowCount"`  // lines written, header included
	InputRows int64  `json:"inputRows"` // rows read from the query
	Bytes     int64  `json:"bytes"`
	Checksum  string `json:"checksum,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedOn int64  `json:"createdOn"`
}

// ExportFileInfo describes a file in the export directory.
type ExportFileInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime int64  `json:"modifiedTime"` // Unix seconds
}

// FileListResponse is the body of GET /api/v1/csv/files.
type FileListResponse struct {
	Success bool             `json:"success"`
	Files   []ExportFileInfo `json:"files"`
}

// RewriteResponse reports the SQL text a request would be executed as.
type RewriteResponse struct {
	Success bool   `json:"success"`
	SQLText string `json:"sqlText"`
	Mode    string `json:"mode"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Driver string `json:"driver"`
}
