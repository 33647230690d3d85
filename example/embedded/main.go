// Example: Using app-csv-pkg as an Embedded Library
//
// This example demonstrates how to use the CSV transform components directly in
// your application against an in-memory DuckDB, and how to serve the same exports
// from an in-process HTTP server.
//
// Run this example:
//
//	go run ./example/embedded
package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lee-lindley/app-csv-pkg/pkg/connection"
	"github.com/lee-lindley/app-csv-pkg/pkg/export"
	"github.com/lee-lindley/app-csv-pkg/pkg/query"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/pkg/source"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
	"github.com/lee-lindley/app-csv-pkg/server/handlers"
)

func main() {
	fmt.Println("=== app-csv-pkg Embedded Example ===")

	// Create an in-memory DuckDB instance
	db, err := sql.Open("duckdb", "")
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer db.Close()

	connMgr := connection.NewManager(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\n1. Creating table 'employees'...")
	if _, err := connMgr.Exec(ctx, `
		CREATE TABLE employees (
			id INTEGER,
			name VARCHAR,
			department VARCHAR,
			salary DECIMAL(10,2),
			hire_date DATE,
			badge VARCHAR
		)
	`); err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}
	if _, err := connMgr.Exec(ctx, `
		INSERT INTO employees VALUES
		(1, 'Alice Johnson', 'Engineering', 95000.00, '2022-01-15', '00042'),
		(2, 'Bob "Bobby" Smith', 'Engineering', 85000.00, '2022-03-20', '00117'),
		(3, 'Charlie Brown', 'Sales, EMEA', 75000.00, '2021-06-10', NULL),
		(4, 'Diana Ross', 'Marketing', 80000.00, '2023-02-01', '01999'),
		(5, 'Eve Wilson', 'Engineering', 105000.00, '2020-11-30', '00007')
	`); err != nil {
		log.Fatalf("Failed to insert data: %v", err)
	}
	fmt.Println("   Inserted 5 employees")

	// Export a live result set with the library functions
	fmt.Println("\n2. Exporting a result set (export.Blob)...")
	rows, err := connMgr.Query(ctx, "SELECT id, name, department, salary FROM employees ORDER BY id")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	src, err := source.NewRows(rows, nil)
	if err != nil {
		log.Fatalf("Failed to read columns: %v", err)
	}
	blob, err := export.Blob(ctx, src, transform.DefaultOptions(), sink.LF)
	src.Close()
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Print(indent(blob.Text))

	// Export SQL text with options
	fmt.Println("\n3. Exporting SQL text with options (pipe separator, protected badges, formats)...")
	executor := query.NewExecutor(connMgr)
	opts := transform.DefaultOptions()
	opts.Separator = '|'
	opts.ProtectNumericStrings = true
	opts.NumberFormat = "%.0f"
	opts.DateFormat = "%d/%m/%Y"

	sqlText := `
		WITH eng AS (SELECT * FROM employees WHERE department = 'Engineering')
		SELECT name, salary, hire_date, badge FROM eng ORDER BY hire_date`
	res, err := executor.Blob(ctx, sqlText, opts, sink.LF)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Print(indent(res.Text))
	fmt.Printf("   %d rows, %d bytes, checksum %s\n", res.Rows, res.Bytes, res.Checksum)

	// Show the rewritten statement
	fmt.Println("\n4. The statement as executed...")
	rw, err := executor.Rewrite(sqlText, opts)
	if err != nil {
		log.Fatalf("Rewrite failed: %v", err)
	}
	fmt.Printf("   mode: %s\n%s\n", rw.Mode, indent(rw.SQL))

	// Write a file export
	fmt.Println("\n5. Writing a windows-1252 file export...")
	exportDir, err := os.MkdirTemp("", "appcsv-example-")
	if err != nil {
		log.Fatalf("Failed to create export directory: %v", err)
	}
	defer os.RemoveAll(exportDir)

	dir, err := sink.NewDirectory(exportDir)
	if err != nil {
		log.Fatalf("Failed to open export directory: %v", err)
	}
	fres, err := executor.File(ctx, "SELECT * FROM employees ORDER BY id", transform.DefaultOptions(), dir, "hr/employees.csv",
		sink.FileOptions{Terminator: sink.CRLF, Encoding: "windows-1252"})
	if err != nil {
		log.Fatalf("File export failed: %v", err)
	}
	fmt.Printf("   wrote %s (%d rows, %d bytes, %s)\n", fres.Path, fres.Rows, fres.Bytes, fres.Encoding)

	// Serve the exports over HTTP in-process
	fmt.Println("\n6. Exporting through an in-process HTTP server...")
	jobs := query.NewJobManager(time.Hour)
	defer jobs.Close()

	h := handlers.NewExportHandler(executor, dir, sink.LF, jobs)
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)

	server := httptest.NewServer(r)
	defer server.Close()

	body := []byte(`{"sqlText": "SELECT department, COUNT(*) AS headcount FROM employees GROUP BY department ORDER BY department", "separator": "tab"}`)
	resp, err := http.Post(server.URL+"/api/v1/csv", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	fmt.Printf("   %s, X-Row-Count %s, ETag %s\n", resp.Status, resp.Header.Get("X-Row-Count"), resp.Header.Get("ETag"))
	fmt.Print(indent(string(text)))

	fmt.Println("\n=== Example completed successfully! ===")
}

func indent(text string) string {
	var b bytes.Buffer
	for _, line := range bytes.SplitAfter([]byte(text), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		b.WriteString("   ")
		b.Write(line)
	}
	return b.String()
}
