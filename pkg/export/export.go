// Package export renders a live row source into a CSV text blob or a CSV file.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// BlobResult is a completed in-memory export.
type BlobResult struct {
	Text     string
	Rows     int64 // Input rows
	Lines    int64 // Lines written, header included
	Bytes    int64
	Checksum string
}

// FileResult is a completed file export.
type FileResult struct {
	Path     string
	Name     string // Relative to the export directory, slash separated
	Encoding string
	Rows     int64
	Lines    int64
	Bytes    int64
	Checksum string
}

// Blob renders every row of src as one text value with lines ending in term.
func Blob(ctx context.Context, src transform.RowSource, opts transform.Options, term sink.LineTerminator) (*BlobResult, error) {
	stream, err := transform.Open(src, opts)
	if err != nil {
		return nil, err
	}
	return BlobStream(ctx, stream, term)
}

// BlobStream drains an open stream into a text value.
func BlobStream(ctx context.Context, stream *transform.Stream, term sink.LineTerminator) (*BlobResult, error) {
	blob := sink.NewBlob(term)
	lines, err := sink.Drain(ctx, stream, blob)
	if err != nil {
		return nil, err
	}
	return &BlobResult{
		Text:     blob.String(),
		Rows:     stream.Rows(),
		Lines:    lines,
		Bytes:    blob.Bytes(),
		Checksum: blob.Checksum(),
	}, nil
}

// File renders every row of src into name inside dir. The file only appears once every
// row was written; on failure nothing is left behind.
func File(ctx context.Context, src transform.RowSource, opts transform.Options, dir *sink.Directory, name string, fopts sink.FileOptions) (*FileResult, error) {
	stream, err := transform.Open(src, opts)
	if err != nil {
		return nil, err
	}
	return FileStream(ctx, stream, dir, name, fopts)
}

// FileStream drains an open stream into name inside dir.
func FileStream(ctx context.Context, stream *transform.Stream, dir *sink.Directory, name string, fopts sink.FileOptions) (*FileResult, error) {
	f, err := dir.Create(name, fopts)
	if err != nil {
		return nil, err
	}

	lines, err := sink.Drain(ctx, stream, f)
	if err != nil {
		if aerr := f.Abort(); aerr != nil {
			err = errors.Join(err, fmt.Errorf("discard partial export: %w", aerr))
		}
		return nil, err
	}
	if err := f.Commit(); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(dir.Path(), f.Path())
	if err != nil {
		rel = filepath.Base(f.Path())
	}

	return &FileResult{
		Path:     f.Path(),
		Name:     filepath.ToSlash(rel),
		Encoding: f.Encoding(),
		Rows:     stream.Rows(),
		Lines:    lines,
		Bytes:    f.Bytes(),
		Checksum: f.Checksum(),
	}, nil
}
