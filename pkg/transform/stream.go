package transform

import (
	"context"
	"errors"
	"io"
)

// RowSource is the input side of a stream. Columns describes the row set before any row
// is read; Next returns one row per call, in column order, and io.EOF once exhausted.
type RowSource interface {
	Columns() []ColumnShape
	Next(ctx context.Context) ([]any, error)
}

type streamState int

const (
	stateAwaitingHeader streamState = iota
	stateStreaming
	stateDone
)

// Stream emits one encoded line per pull: the header first when the plan asks for one,
// then one line per input row. It is not safe for concurrent use.
type Stream struct {
	plan    *Plan
	src     RowSource
	state   streamState
	rows    int64
	emitted int64
	err     error
}

// NewStream binds a plan to the source it was built from.
func NewStream(plan *Plan, src RowSource) *Stream {
	s := &Stream{plan: plan, src: src, state: stateStreaming}
	if plan.EmitsHeader() {
		s.state = stateAwaitingHeader
	}
	return s
}

// Open plans src with opts and returns a stream over it.
func Open(src RowSource, opts Options) (*Stream, error) {
	plan, err := BuildPlan(src.Columns(), opts)
	if err != nil {
		return nil, err
	}
	return NewStream(plan, src), nil
}

// Next returns the next encoded line, or io.EOF when the source is exhausted. A
// conversion failure ends the stream; later calls return the same error.
func (s *Stream) Next(ctx context.Context) (string, error) {
	switch s.state {
	case stateDone:
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	case stateAwaitingHeader:
		s.state = stateStreaming
		s.emitted++
		return s.plan.Header(), nil
	}

	values, err := s.src.Next(ctx)
	if err != nil {
		s.state = stateDone
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		s.err = err
		return "", err
	}
	s.rows++

	line, err := s.plan.encodeRow(s.rows, values)
	if err != nil {
		s.state = stateDone
		s.err = err
		return "", err
	}
	s.emitted++
	return line, nil
}

// Plan returns the plan the stream renders with.
func (s *Stream) Plan() *Plan {
	return s.plan
}

// Emitted returns the number of lines returned so far, header included.
func (s *Stream) Emitted() int64 {
	return s.emitted
}

// Rows returns the number of input rows consumed so far.
func (s *Stream) Rows() int64 {
	return s.rows
}

// SliceSource is an in-memory RowSource.
type SliceSource struct {
	columns []ColumnShape
	rows    [][]any
	next    int
}

// NewSliceSource returns a source over rows with the given shape.
func NewSliceSource(columns []ColumnShape, rows [][]any) *SliceSource {
	return &SliceSource{columns: columns, rows: rows}
}

// Columns implements RowSource.
func (s *SliceSource) Columns() []ColumnShape {
	return s.columns
}

// Next implements RowSource.
func (s *SliceSource) Next(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}
