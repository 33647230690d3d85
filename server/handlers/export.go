// Package handlers provides HTTP handlers for the CSV export API.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/export"
	"github.com/lee-lindley/app-csv-pkg/pkg/query"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
	"github.com/lee-lindley/app-csv-pkg/server/apierror"
	"github.com/lee-lindley/app-csv-pkg/server/types"
)

// ExportHandler handles CSV export HTTP requests.
type ExportHandler struct {
	exporter query.Exporter
	dir      *sink.Directory
	term     sink.LineTerminator
	jobs     *query.JobManager
}

// NewExportHandler creates a new export handler. Files are written inside dir and
// tracked by jobs; term is used when a request names no line terminator.
func NewExportHandler(exporter query.Exporter, dir *sink.Directory, term sink.LineTerminator, jobs *query.JobManager) *ExportHandler {
	if term == "" {
		term = sink.LF
	}
	return &ExportHandler{
		exporter: exporter,
		dir:      dir,
		term:     term,
		jobs:     jobs,
	}
}

// Routes registers the export endpoints on r.
func (h *ExportHandler) Routes(r chi.Router) {
	r.Post("/csv", h.ExportCSV)
	r.Post("/rewrite", h.Rewrite)

	r.Get("/csv/files", h.ListFiles)
	r.Post("/csv/files", h.ExportFile)
	r.Get("/csv/files/{exportId}", h.GetFileExport)
	r.Get("/csv/files/{exportId}/content", h.DownloadFileExport)
	r.Post("/csv/files/{exportId}/cancel", h.CancelFileExport)
	r.Delete("/csv/files/{exportId}", h.DeleteFileExport)
}

// ExportCSV handles POST /api/v1/csv. The CSV text is the response body.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, apierror.NewInvalidRequestError("Invalid request body"))
		return
	}

	opts, term, err := h.requestOptions(&req)
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	res, err := h.exporter.Blob(r.Context(), req.SQLText, opts, term)
	if err != nil {
		log.Printf("csv export failed: %v", err)
		sendError(w, apierror.FromError(err))
		return
	}

	etag := `"` + res.Checksum + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Row-Count", strconv.FormatInt(res.Lines, 10))
	w.Header().Set("X-Input-Rows", strconv.FormatInt(res.Rows, 10))
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.FormatInt(res.Bytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(res.Text)); err != nil {
		log.Printf("failed to write csv response: %v", err)
	}
}

// ExportFile handles POST /api/v1/csv/files. When no file name is given the export id
// names the file. Async requests return 202 at once; the export keeps running after the
// request ends and is polled through GetFileExport.
func (h *ExportHandler) ExportFile(w http.ResponseWriter, r *http.Request) {
	var req types.FileExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, apierror.NewInvalidRequestError("Invalid request body"))
		return
	}

	opts, term, err := h.requestOptions(&req.ExportRequest)
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	// Reject bad file names before anything runs.
	if req.FileName != "" {
		if _, err := h.dir.Resolve(req.FileName); err != nil {
			sendError(w, apierror.FromError(err))
			return
		}
	}

	fopts := sink.FileOptions{
		Terminator:   term,
		Encoding:     req.Encoding,
		NormalizeNFC: req.NormalizeNFC,
		Overwrite:    req.Overwrite,
	}

	job := h.jobs.Create(req.SQLText, req.FileName)
	run := func(ctx context.Context) (*export.FileResult, error) {
		res, err := h.exporter.File(ctx, req.SQLText, opts, h.dir, job.FileName, fopts)
		if err != nil {
			log.Printf("file export %s failed: %v", job.ID, err)
			return nil, err
		}
		log.Printf("file export %s wrote %d lines to %s", job.ID, res.Lines, res.Path)
		return res, nil
	}

	if req.Async {
		h.jobs.Go(job.ID, run)
		current, _ := h.jobs.Get(job.ID)
		sendJSON(w, http.StatusAccepted, jobResponse(current))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	h.jobs.Start(job.ID, cancel)
	res, err := run(ctx)
	h.jobs.Finish(job.ID, res, err)
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	current, _ := h.jobs.Get(job.ID)
	sendJSON(w, http.StatusCreated, jobResponse(current))
}

// GetFileExport handles GET /api/v1/csv/files/{exportId}.
func (h *ExportHandler) GetFileExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exportId")

	job, ok := h.jobs.Get(id)
	if !ok {
		sendError(w, apierror.NewNotFoundError("export", id))
		return
	}

	sendJSON(w, http.StatusOK, jobResponse(job))
}

// DownloadFileExport handles GET /api/v1/csv/files/{exportId}/content.
func (h *ExportHandler) DownloadFileExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exportId")

	job, ok := h.jobs.Get(id)
	if !ok {
		sendError(w, apierror.NewNotFoundError("export", id))
		return
	}
	if job.Status != query.JobStatusSuccess {
		sendError(w, apierror.NewConflictError("export "+id+" has no content (status: "+string(job.Status)+")"))
		return
	}

	if job.Result.Encoding == "utf-8" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/csv; charset="+job.Result.Encoding)
	}
	w.Header().Set("ETag", `"`+job.Result.Checksum+`"`)
	w.Header().Set("X-Row-Count", strconv.FormatInt(job.Result.Lines, 10))
	w.Header().Set("X-Input-Rows", strconv.FormatInt(job.Result.Rows, 10))
	http.ServeFile(w, r, job.Result.Path)
}

// CancelFileExport handles POST /api/v1/csv/files/{exportId}/cancel.
func (h *ExportHandler) CancelFileExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exportId")

	if _, ok := h.jobs.Get(id); !ok {
		sendError(w, apierror.NewNotFoundError("export", id))
		return
	}

	if err := h.jobs.Cancel(id); err != nil {
		sendError(w, apierror.NewConflictError(err.Error()))
		return
	}

	job, _ := h.jobs.Get(id)
	sendJSON(w, http.StatusOK, jobResponse(job))
}

// DeleteFileExport handles DELETE /api/v1/csv/files/{exportId}. The file of a
// successful export is removed with the job.
func (h *ExportHandler) DeleteFileExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exportId")

	job, ok := h.jobs.Get(id)
	if !ok {
		sendError(w, apierror.NewNotFoundError("export", id))
		return
	}
	if !job.Status.Done() {
		sendError(w, apierror.NewConflictError("export "+id+" is still "+string(job.Status)))
		return
	}

	if job.Status == query.JobStatusSuccess {
		if err := h.dir.Remove(job.FileName); err != nil && !errors.Is(err, os.ErrNotExist) {
			sendError(w, apierror.FromError(err))
			return
		}
	}
	h.jobs.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /api/v1/csv/files?pattern=*.csv.
func (h *ExportHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.dir.List(r.URL.Query().Get("pattern"))
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	resp := types.FileListResponse{
		Success: true,
		Files:   make([]types.ExportFileInfo, 0, len(files)),
	}
	for _, f := range files {
		resp.Files = append(resp.Files, types.ExportFileInfo{
			Name:         f.Name,
			Size:         f.Size,
			ModifiedTime: f.ModifiedTime.Unix(),
		})
	}
	sendJSON(w, http.StatusOK, resp)
}

// jobResponse builds the response for a job snapshot.
func jobResponse(job query.Job) types.FileExportResponse {
	resp := types.FileExportResponse{
		Success:   job.Status != query.JobStatusFailed && job.Status != query.JobStatusCanceled,
		ExportID:  job.ID,
		Status:    string(job.Status),
		StatusURL: "/api/v1/csv/files/" + job.ID,
		FileName:  job.FileName,
		CreatedOn: job.CreatedOn.Unix(),
	}

	switch job.Status {
	case query.JobStatusSuccess:
		resp.FileName = job.Result.Name
		resp.Encoding = job.Result.Encoding
		resp.RowCount = job.Result.Lines
		resp.InputRows = job.Result.Rows
		resp.Bytes = job.Result.Bytes
		resp.Checksum = job.Result.Checksum
	case query.JobStatusFailed:
		apiErr := apierror.FromError(job.Err)
		resp.Code = apiErr.Code
		resp.Message = apiErr.Message
	case query.JobStatusCanceled:
		resp.Message = "Export canceled"
	}
	return resp
}

// Rewrite handles POST /api/v1/rewrite. The query is not executed.
func (h *ExportHandler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, apierror.NewInvalidRequestError("Invalid request body"))
		return
	}

	opts, _, err := h.requestOptions(&req)
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	res, err := h.exporter.Rewrite(req.SQLText, opts)
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	sendJSON(w, http.StatusOK, types.RewriteResponse{
		Success: true,
		SQLText: res.SQL,
		Mode:    string(res.Mode),
	})
}

// requestOptions turns the request fields into transform options. Omitted fields take
// their defaults.
func (h *ExportHandler) requestOptions(req *types.ExportRequest) (transform.Options, sink.LineTerminator, error) {
	opts := transform.DefaultOptions()

	if strings.TrimSpace(req.SQLText) == "" {
		return opts, "", apierror.NewInvalidRequestError("SQL text is required")
	}

	if req.Header != nil {
		opts.EmitHeader = *req.Header
	}
	if req.ProtectNumericStrings != nil {
		opts.ProtectNumericStrings = *req.ProtectNumericStrings
	}
	if req.Separator != "" {
		sep, err := transform.ParseSeparator(req.Separator)
		if err != nil {
			return opts, "", err
		}
		opts.Separator = sep
	}
	opts.NumberFormat = req.NumberFormat
	opts.DateFormat = req.DateFormat
	opts.IntervalFormat = req.IntervalFormat

	if err := opts.Validate(); err != nil {
		return opts, "", err
	}

	term := h.term
	if req.LineTerminator != "" {
		t, err := sink.ParseLineTerminator(req.LineTerminator)
		if err != nil {
			return opts, "", err
		}
		term = t
	}
	return opts, term, nil
}

// sendJSON writes v as a JSON response.
func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// sendError sends an error response in the JSON envelope.
func sendError(w http.ResponseWriter, err *apierror.APIError) {
	if writeErr := apierror.Write(w, err); writeErr != nil {
		log.Printf("failed to encode error response: %v", writeErr)
	}
}

// HealthHandler reports service liveness.
type HealthHandler struct {
	driver string
}

// NewHealthHandler creates a health handler for the named driver.
func NewHealthHandler(driver string) *HealthHandler {
	if driver == "" {
		driver = config.DefaultDriver
	}
	return &HealthHandler{driver: driver}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", Driver: h.driver})
}
