package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lee-lindley/app-csv-pkg/pkg/connection"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
	"github.com/lee-lindley/app-csv-pkg/pkg/export"
	"github.com/lee-lindley/app-csv-pkg/pkg/metrics"
	"github.com/lee-lindley/app-csv-pkg/pkg/rewrite"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/source"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// Sink labels used for metrics.
const (
	sinkBlob = "blob"
	sinkFile = "file"
)

// Executor runs caller SQL text against a database and renders the rows as CSV.
type Executor struct {
	mgr        *connection.Manager
	classifier StatementClassifier
	mapper     *source.TypeMapper
	metrics    *metrics.Metrics
}

// NewExecutor creates a new executor over mgr.
func NewExecutor(mgr *connection.Manager) *Executor {
	return &Executor{
		mgr:        mgr,
		classifier: NewClassifier(),
		mapper:     source.NewTypeMapper(),
	}
}

// SetMetrics wires a metrics collector. A nil collector disables metrics.
func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// Rewrite returns the SQL text sqlText would be executed as.
func (e *Executor) Rewrite(sqlText string, opts transform.Options) (*RewriteResult, error) {
	if err := e.checkQuery(sqlText); err != nil {
		return nil, err
	}
	wired, mode, err := rewrite.RewriteMode(sqlText, opts)
	e.metrics.ObserveRewrite(string(mode), err)
	if err != nil {
		return nil, err
	}
	return &RewriteResult{SQL: wired, Mode: mode}, nil
}

// Open rewrites sqlText to invoke the transform, runs the inner query and returns a
// cursor over the encoded lines. Options embedded in already wired text take precedence
// over opts.
func (e *Executor) Open(ctx context.Context, sqlText string, opts transform.Options) (*Cursor, error) {
	rw, err := e.Rewrite(sqlText, opts)
	if err != nil {
		return nil, err
	}

	call, err := rewrite.ParseInvocation(rw.SQL)
	if err != nil {
		return nil, err
	}

	rows, err := e.mgr.Query(ctx, call.InnerSQL)
	if err != nil {
		return nil, fmt.Errorf("query execution error: %w", err)
	}

	src, err := source.NewRows(rows, e.mapper)
	if err != nil {
		rows.Close()
		return nil, err
	}

	plan, err := transform.BuildPlan(src.Columns(), call.Options)
	if err != nil {
		rows.Close()
		return nil, transientTemporal(err)
	}

	return &Cursor{
		stream:   transform.NewStream(plan, src),
		rows:     src,
		wired:    rw.SQL,
		innerSQL: call.InnerSQL,
		mode:     rw.Mode,
	}, nil
}

// Blob runs sqlText and returns the rows as one CSV text value.
func (e *Executor) Blob(ctx context.Context, sqlText string, opts transform.Options, term sink.LineTerminator) (res *export.BlobResult, err error) {
	start := time.Now()
	defer func() {
		var rows, size int64
		if res != nil {
			rows, size = res.Rows, res.Bytes
		}
		e.metrics.ObserveExport(sinkBlob, rows, size, time.Since(start), err)
	}()

	cur, err := e.Open(ctx, sqlText, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	return export.BlobStream(ctx, cur.Stream(), term)
}

// File runs sqlText and writes the rows to name inside dir.
func (e *Executor) File(ctx context.Context, sqlText string, opts transform.Options, dir *sink.Directory, name string, fopts sink.FileOptions) (res *export.FileResult, err error) {
	start := time.Now()
	defer func() {
		var rows, size int64
		if res != nil {
			rows, size = res.Rows, res.Bytes
		}
		e.metrics.ObserveExport(sinkFile, rows, size, time.Since(start), err)
	}()

	// Reject bad file names before running the query.
	if _, err := dir.Resolve(name); err != nil {
		return nil, err
	}

	cur, err := e.Open(ctx, sqlText, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	return export.FileStream(ctx, cur.Stream(), dir, name, fopts)
}

func (e *Executor) checkQuery(sqlText string) error {
	res := e.classifier.Classify(sqlText)
	if res.IsQuery {
		return nil
	}
	if res.Keyword == "" {
		return csverr.NewUnparsableQuery("empty SQL text")
	}
	return csverr.NewUnparsableQuery(fmt.Sprintf("only queries can be exported, %s is a %s statement", res.Keyword, res.Type))
}

// transientTemporal replaces the generic unsupported-type error of a temporal column
// with one that tells the caller how to fix the query.
func transientTemporal(err error) error {
	if !csverr.IsTransientTemporal(err) {
		return err
	}
	var cerr *csverr.Error
	errors.As(err, &cerr)
	dbType, _ := cerr.Data["databaseType"].(string)
	return csverr.NewTransientTemporal(cerr.Column(), dbType)
}
