// Package main provides a command line tool that runs a query against any registered
// database/sql driver and writes the rows as CSV.
//
// Usage:
//
//	appcsv -driver duckdb -dsn data.duckdb -sql "SELECT * FROM orders" -out orders.csv
//	appcsv -driver pgx -dsn "$DATABASE_URL" -file report.sql -sep '|' -crlf
//	appcsv -rewrite-only -sql "WITH a AS (SELECT 1 x) SELECT * FROM a"
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/connection"
	"github.com/lee-lindley/app-csv-pkg/pkg/query"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

type flags struct {
	driver         string
	dsn            string
	sqlText        string
	sqlFile        string
	header         bool
	separator      string
	protect        bool
	numberFormat   string
	dateFormat     string
	intervalFormat string
	crlf           bool
	out            string
	encoding       string
	nfc            bool
	overwrite      bool
	rewriteOnly    bool
	timeout        time.Duration
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("appcsv: ")

	var f flags
	flag.StringVar(&f.driver, "driver", config.DefaultDriver, "database/sql driver: duckdb, pgx, mysql, sqlserver, sqlite, snowflake")
	flag.StringVar(&f.dsn, "dsn", "", "data source name for the driver")
	flag.StringVar(&f.sqlText, "sql", "", "query text")
	flag.StringVar(&f.sqlFile, "file", "", "read the query from this file, - for stdin")
	flag.BoolVar(&f.header, "header", config.DefaultEmitHeader, "emit a header line with the column names")
	flag.StringVar(&f.separator, "sep", string(config.DefaultSeparator), "field separator, one character or \"tab\"")
	flag.BoolVar(&f.protect, "protect", config.DefaultProtectNumericStrings, "wrap numeric-looking text as =\"...\"")
	flag.StringVar(&f.numberFormat, "number-format", "", "printf pattern for numeric columns")
	flag.StringVar(&f.dateFormat, "date-format", "", "strftime pattern for date columns")
	flag.StringVar(&f.intervalFormat, "interval-format", "", "pattern for interval columns (%Y %m %d %H %M %S %f)")
	flag.BoolVar(&f.crlf, "crlf", false, "end lines with CRLF instead of LF")
	flag.StringVar(&f.out, "out", "", "output file; stdout when empty")
	flag.StringVar(&f.encoding, "encoding", "", "output file encoding label, UTF-8 when empty")
	flag.BoolVar(&f.nfc, "nfc", false, "normalize output file text to Unicode NFC")
	flag.BoolVar(&f.overwrite, "overwrite", false, "replace an existing output file")
	flag.BoolVar(&f.rewriteOnly, "rewrite-only", false, "print the rewritten SQL text and exit")
	flag.DurationVar(&f.timeout, "timeout", 0, "abort the export after this long")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(f flags) error {
	sqlText, err := readSQL(f)
	if err != nil {
		return err
	}

	opts, err := f.options()
	if err != nil {
		return err
	}

	term := sink.LF
	if f.crlf {
		term = sink.CRLF
	}

	if f.rewriteOnly {
		res, err := query.NewExecutor(nil).Rewrite(sqlText, opts)
		if err != nil {
			return err
		}
		fmt.Println(res.SQL)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	connMgr, err := connection.Open(ctx, f.driver, f.dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := connMgr.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	executor := query.NewExecutor(connMgr)

	if f.out == "" {
		return writeStdout(ctx, executor, sqlText, opts, term)
	}

	dir, err := sink.NewDirectory(filepath.Dir(f.out))
	if err != nil {
		return err
	}
	res, err := executor.File(ctx, sqlText, opts, dir, filepath.Base(f.out), sink.FileOptions{
		Terminator:   term,
		Encoding:     f.encoding,
		NormalizeNFC: f.nfc,
		Overwrite:    f.overwrite,
	})
	if err != nil {
		return err
	}
	log.Printf("wrote %d lines (%d bytes, %s, xxh3 %s) to %s", res.Lines, res.Bytes, res.Encoding, res.Checksum, res.Path)
	return nil
}

func (f flags) options() (transform.Options, error) {
	opts := transform.DefaultOptions()
	opts.EmitHeader = f.header
	opts.ProtectNumericStrings = f.protect
	opts.NumberFormat = f.numberFormat
	opts.DateFormat = f.dateFormat
	opts.IntervalFormat = f.intervalFormat

	sep, err := transform.ParseSeparator(f.separator)
	if err != nil {
		return opts, err
	}
	opts.Separator = sep
	return opts, opts.Validate()
}

func readSQL(f flags) (string, error) {
	switch {
	case f.sqlText != "" && f.sqlFile != "":
		return "", fmt.Errorf("-sql and -file are mutually exclusive")
	case f.sqlText != "":
		return f.sqlText, nil
	case f.sqlFile == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		return string(b), nil
	case f.sqlFile != "":
		b, err := os.ReadFile(f.sqlFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("one of -sql or -file is required")
}

// writeStdout streams lines to standard output as they are encoded.
func writeStdout(ctx context.Context, executor *query.Executor, sqlText string, opts transform.Options, term sink.LineTerminator) error {
	cur, err := executor.Open(ctx, sqlText, opts)
	if err != nil {
		return err
	}
	defer cur.Close()

	w := bufio.NewWriter(os.Stdout)
	lines, err := sink.Drain(ctx, cur.Stream(), &lineWriter{w: w, term: string(term)})
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}
	log.Printf("wrote %d lines (%s)", lines, strings.ToLower(term.Name()))
	return nil
}

type lineWriter struct {
	w    *bufio.Writer
	term string
}

func (l *lineWriter) WriteRow(line string) error {
	if _, err := l.w.WriteString(line); err != nil {
		return err
	}
	_, err := l.w.WriteString(l.term)
	return err
}
