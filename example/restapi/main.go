// Example: Using the CSV export REST API
//
// This example demonstrates how to export query results as CSV over HTTP. This is
// useful for languages and tools that can speak HTTP but have no database driver.
//
// Start the server:
//
//	go run ./cmd/server
//
// Then run this example:
//
//	go run ./example/restapi
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/lee-lindley/app-csv-pkg/server/apierror"
	"github.com/lee-lindley/app-csv-pkg/server/types"
)

var baseURL = getBaseURL()

func getBaseURL() string {
	host := os.Getenv("APP_CSV_HOST")
	if host == "" {
		host = "localhost:8080"
	}
	return fmt.Sprintf("http://%s/api/v1", host)
}

const productsSQL = `
WITH products(id, name, price, sku) AS (
	VALUES (1, 'Widget', 9.99, '000123'),
	       (2, 'Gadget, large', 24.50, '000456'),
	       (3, 'Thing "Pro"', 105.00, NULL)
)
SELECT id, name, price, sku, DATE '2024-03-01' + id AS listed FROM products ORDER BY id`

func main() {
	fmt.Println("=== CSV Export REST API Example ===")

	// Example 1: See how the query is executed
	fmt.Println("\n1. Rewriting the query...")
	var rw types.RewriteResponse
	if err := postJSON("/rewrite", types.ExportRequest{SQLText: productsSQL}, &rw); err != nil {
		log.Fatalf("Rewrite failed: %v", err)
	}
	fmt.Printf("   mode: %s\n%s\n", rw.Mode, rw.SQLText)

	// Example 2: Export as CSV text
	fmt.Println("\n2. Exporting as CSV text (semicolon separator, protected SKUs)...")
	protect := true
	csvText, rows, err := exportCSV(types.ExportRequest{
		SQLText:               productsSQL,
		Separator:             ";",
		ProtectNumericStrings: &protect,
		NumberFormat:          "%.2f",
		DateFormat:            "%d.%m.%Y",
	})
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("   %s lines\n%s", rows, csvText)

	// Example 3: Background file export
	fmt.Println("\n3. Exporting to a file in the background...")
	var job types.FileExportResponse
	if err := postJSON("/csv/files", types.FileExportRequest{
		ExportRequest: types.ExportRequest{SQLText: productsSQL, LineTerminator: "CRLF"},
		FileName:      "examples/products.csv",
		Encoding:      "windows-1252",
		Overwrite:     true,
		Async:         true,
	}, &job); err != nil {
		log.Fatalf("File export failed: %v", err)
	}
	fmt.Printf("   submitted export %s (%s)\n", job.ExportID, job.Status)

	for job.Status == "pending" || job.Status == "running" {
		time.Sleep(100 * time.Millisecond)
		if err := getJSON("/csv/files/"+job.ExportID, &job); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
	}
	fmt.Printf("   %s: %s, %d lines, %d bytes, %s, checksum %s\n",
		job.Status, job.FileName, job.RowCount, job.Bytes, job.Encoding, job.Checksum)

	// Example 4: List export files
	fmt.Println("\n4. Listing export files...")
	var files types.FileListResponse
	if err := getJSON("/csv/files?pattern=*.csv", &files); err != nil {
		log.Fatalf("Listing failed: %v", err)
	}
	for _, f := range files.Files {
		fmt.Printf("   %-40s %8d bytes  %s\n", f.Name, f.Size, time.Unix(f.ModifiedTime, 0).Format(time.RFC3339))
	}

	// Example 5: Error handling
	fmt.Println("\n5. Exporting a binary column...")
	if _, _, err := exportCSV(types.ExportRequest{SQLText: "SELECT 'abc'::BLOB AS payload"}); err != nil {
		fmt.Printf("   rejected as expected: %v\n", err)
	}

	fmt.Println("\n=== Example completed successfully! ===")
}

func exportCSV(req types.ExportRequest) (string, string, error) {
	resp, err := post("/csv", req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", decodeError(resp.StatusCode, body)
	}
	return string(body), resp.Header.Get("X-Row-Count"), nil
}

func post(path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return http.Post(baseURL+path, "application/json", bytes.NewReader(body))
}

func postJSON(path string, payload, out any) error {
	resp, err := post(path, payload)
	if err != nil {
		return err
	}
	return readJSON(resp, out)
}

func getJSON(path string, out any) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return err
	}
	return readJSON(resp, out)
}

func readJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func decodeError(status int, body []byte) error {
	var e apierror.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("HTTP %d: %s", status, body)
	}
	return fmt.Errorf("HTTP %d [%s] %s", status, e.Code, e.Message)
}
