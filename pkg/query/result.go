// Package query runs caller SQL text through the CSV transform: the text is rewritten to
// invoke the transform, the invocation is split back into the inner query and its
// options, and the inner query's rows are streamed through the transform.
package query

import (
	"context"

	"github.com/lee-lindley/app-csv-pkg/pkg/rewrite"
	"github.com/lee-lindley/app-csv-pkg/pkg/source"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// RewriteResult is the outcome of a diagnostic rewrite.
type RewriteResult struct {
	SQL  string
	Mode rewrite.Mode
}

// Cursor is an open export: a transform stream over a live result set. It must be
// closed.
type Cursor struct {
	stream   *transform.Stream
	rows     *source.Rows
	wired    string
	innerSQL string
	mode     rewrite.Mode
}

// Next returns the next encoded line, or io.EOF when all rows were returned.
func (c *Cursor) Next(ctx context.Context) (string, error) {
	return c.stream.Next(ctx)
}

// Stream returns the underlying transform stream.
func (c *Cursor) Stream() *transform.Stream {
	return c.stream
}

// Plan returns the output plan of the export.
func (c *Cursor) Plan() *transform.Plan {
	return c.stream.Plan()
}

// WiredSQL returns the SQL text after rewriting, as it invokes the transform.
func (c *Cursor) WiredSQL() string {
	return c.wired
}

// InnerSQL returns the query that was sent to the database.
func (c *Cursor) InnerSQL() string {
	return c.innerSQL
}

// Mode reports how the caller's text was rewritten.
func (c *Cursor) Mode() rewrite.Mode {
	return c.mode
}

// Close releases the result set.
func (c *Cursor) Close() error {
	return c.rows.Close()
}
