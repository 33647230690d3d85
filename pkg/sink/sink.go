// Package sink collects encoded CSV lines into a text blob or a file.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// LineTerminator ends every line a sink writes.
type LineTerminator string

// Supported terminators.
const (
	LF   LineTerminator = "\n"
	CRLF LineTerminator = "\r\n"
)

// Name returns the configuration name of the terminator.
func (t LineTerminator) Name() string {
	if t == CRLF {
		return config.LineTerminatorCRLF
	}
	return config.LineTerminatorLF
}

// ParseLineTerminator accepts "LF", "CRLF" (any case) or the literal sequences. Empty
// input selects LF.
func ParseLineTerminator(s string) (LineTerminator, error) {
	switch strings.ToUpper(s) {
	case "", config.LineTerminatorLF, "\n":
		return LF, nil
	case config.LineTerminatorCRLF, "\r\n":
		return CRLF, nil
	}
	return "", csverr.NewInvalidOptions(config.OptionLineTerminator, fmt.Sprintf("expected LF or CRLF, got %q", s))
}

// Sink receives encoded lines without terminators.
type Sink interface {
	WriteRow(line string) error
}

// Encoded produces encoded lines and io.EOF at the end. *transform.Stream implements it.
type Encoded interface {
	Next(ctx context.Context) (string, error)
}

// Drain copies every line of src into dst and returns the number of lines written.
// It stops at the first error of either side.
func Drain(ctx context.Context, src Encoded, dst Sink) (int64, error) {
	var n int64
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := dst.WriteRow(line); err != nil {
			return n, fmt.Errorf("failed to write line %d: %w", n+1, err)
		}
		n++
	}
}
