package query

import (
	"context"

	"github.com/lee-lindley/app-csv-pkg/pkg/export"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// Exporter defines the SQL-text entry points served over HTTP and the CLI.
type Exporter interface {
	// Blob runs sqlText and returns its rows as one CSV text value.
	Blob(ctx context.Context, sqlText string, opts transform.Options, term sink.LineTerminator) (*export.BlobResult, error)

	// File runs sqlText and writes its rows to name inside dir.
	File(ctx context.Context, sqlText string, opts transform.Options, dir *sink.Directory, name string, fopts sink.FileOptions) (*export.FileResult, error)

	// Rewrite returns the SQL text that would be executed for sqlText, without running it.
	Rewrite(sqlText string, opts transform.Options) (*RewriteResult, error)
}

// StatementClassifier defines the interface for SQL classification.
type StatementClassifier interface {
	// Classify analyzes a SQL statement and returns its classification.
	Classify(sql string) ClassifyResult
}

var _ Exporter = (*Executor)(nil)
var _ StatementClassifier = (*Classifier)(nil)
