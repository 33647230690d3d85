package sink

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Blob accumulates lines in memory.
type Blob struct {
	buf  strings.Builder
	term LineTerminator
	hash *xxh3.Hasher
	rows int64
}

// NewBlob returns an empty blob whose lines end with term.
func NewBlob(term LineTerminator) *Blob {
	if term == "" {
		term = LF
	}
	return &Blob{term: term, hash: xxh3.New()}
}

// WriteRow implements Sink.
func (b *Blob) WriteRow(line string) error {
	b.buf.WriteString(line)
	b.buf.WriteString(string(b.term))
	b.hash.WriteString(line)
	b.hash.WriteString(string(b.term))
	b.rows++
	return nil
}

// String returns the accumulated text.
func (b *Blob) String() string {
	return b.buf.String()
}

// Rows returns the number of lines written.
func (b *Blob) Rows() int64 {
	return b.rows
}

// Bytes returns the length of the accumulated text.
func (b *Blob) Bytes() int64 {
	return int64(b.buf.Len())
}

// Checksum returns the hex XXH3-64 digest of the accumulated text.
func (b *Blob) Checksum() string {
	return fmt.Sprintf("%016x", b.hash.Sum64())
}
