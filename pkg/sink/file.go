package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

const tempSuffix = ".tmp"

// FileOptions controls how a file export is written.
type FileOptions struct {
	Terminator LineTerminator
	// Encoding is a WHATWG encoding label such as "windows-1252". Empty means UTF-8.
	// Characters the encoding cannot represent are replaced.
	Encoding string
	// NormalizeNFC composes text to Unicode NFC before encoding.
	NormalizeNFC bool
	Overwrite    bool
}

// File writes lines to a temporary file that becomes visible under its final name on
// Commit. Abort discards it.
type File struct {
	path    string
	tmpPath string
	file    *os.File
	buf     *bufio.Writer
	digest  *digestWriter
	text    io.Writer
	encoder *transform.Writer
	charset string
	term    LineTerminator
	rows    int64
	closed  bool
}

func createFile(path string, opts FileOptions) (*File, error) {
	t, encName, err := textTransformer(opts)
	if err != nil {
		return nil, err
	}

	term := opts.Terminator
	if term == "" {
		term = LF
	}

	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+tempSuffix)
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	f := &File{
		path:    path,
		tmpPath: tmpPath,
		file:    file,
		buf:     bufio.NewWriterSize(file, 64*1024),
		charset: encName,
		term:    term,
	}
	f.digest = &digestWriter{w: f.buf, hash: xxh3.New()}
	f.text = f.digest
	if t != nil {
		f.encoder = transform.NewWriter(f.digest, t)
		f.text = f.encoder
	}
	return f, nil
}

// textTransformer builds the rune pipeline for opts, or nil when text is written as is.
func textTransformer(opts FileOptions) (transform.Transformer, string, error) {
	var chain []transform.Transformer
	if opts.NormalizeNFC {
		chain = append(chain, norm.NFC)
	}

	name := "utf-8"
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, "", csverr.NewInvalidOptions("encoding", fmt.Sprintf("unknown encoding %q", opts.Encoding))
		}
		if name, err = htmlindex.Name(enc); err != nil {
			name = opts.Encoding
		}
		if name != "utf-8" {
			chain = append(chain, encoding.ReplaceUnsupported(enc.NewEncoder()))
		}
	}

	switch len(chain) {
	case 0:
		return nil, name, nil
	case 1:
		return chain[0], name, nil
	default:
		return transform.Chain(chain...), name, nil
	}
}

// WriteRow implements Sink.
func (f *File) WriteRow(line string) error {
	if f.closed {
		return fmt.Errorf("write to closed file export %s", f.path)
	}
	if _, err := io.WriteString(f.text, line); err != nil {
		return err
	}
	if _, err := io.WriteString(f.text, string(f.term)); err != nil {
		return err
	}
	f.rows++
	return nil
}

// Commit flushes all output and moves the file to its final name.
func (f *File) Commit() error {
	if f.closed {
		return fmt.Errorf("file export %s already closed", f.path)
	}
	f.closed = true

	if err := f.flush(); err != nil {
		f.file.Close()
		os.Remove(f.tmpPath)
		return err
	}
	if err := f.file.Close(); err != nil {
		os.Remove(f.tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(f.tmpPath, f.path); err != nil {
		os.Remove(f.tmpPath)
		return fmt.Errorf("failed to publish file: %w", err)
	}
	return nil
}

func (f *File) flush() error {
	if f.encoder != nil {
		if err := f.encoder.Close(); err != nil {
			return fmt.Errorf("failed to encode file: %w", err)
		}
	}
	if err := f.buf.Flush(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// Abort discards everything written so far. It is a no-op after Commit.
func (f *File) Abort() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.file.Close()
	if err := os.Remove(f.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return nil
}

// Path returns the final path of the export.
func (f *File) Path() string {
	return f.path
}

// Encoding returns the canonical name of the output encoding.
func (f *File) Encoding() string {
	return f.charset
}

// Rows returns the number of lines written.
func (f *File) Rows() int64 {
	return f.rows
}

// Bytes returns the number of encoded bytes written. It is exact after Commit.
func (f *File) Bytes() int64 {
	return f.digest.n
}

// Checksum returns the hex XXH3-64 digest of the encoded bytes. It is exact after Commit.
func (f *File) Checksum() string {
	return fmt.Sprintf("%016x", f.digest.hash.Sum64())
}

// digestWriter counts and hashes the bytes passing through it.
type digestWriter struct {
	w    io.Writer
	hash *xxh3.Hasher
	n    int64
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.hash.Write(p[:n])
	d.n += int64(n)
	return n, err
}
