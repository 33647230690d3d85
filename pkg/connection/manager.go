// Package connection manages the database/sql handle that export queries run against.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// pingTimeout bounds the connectivity check done by Open.
const pingTimeout = 10 * time.Second

// Manager wraps a *sql.DB for the export service.
//
// Export queries are reads and run concurrently. Exec and ExecTx, used to prepare data,
// are serialized with a mutex since some engines (DuckDB, SQLite) allow one writer.
type Manager struct {
	db      *sql.DB
	driver  string
	writeMu sync.Mutex
}

// NewManager creates a new connection manager for the given database.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Open connects to dsn with a registered database/sql driver and verifies the
// connection with a ping.
func Open(ctx context.Context, driver, dsn string) (*Manager, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return &Manager{db: db, driver: driver}, nil
}

// Driver returns the driver name given to Open, or "" for a wrapped handle.
func (m *Manager) Driver() string {
	return m.driver
}

// Query executes a read query (can be concurrent).
// Multiple goroutines can call Query simultaneously.
func (m *Manager) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row.
func (m *Manager) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return m.db.QueryRowContext(ctx, query, args...)
}

// Exec executes a write operation (serialized).
func (m *Manager) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.db.ExecContext(ctx, query, args...)
}

// ExecTx executes multiple statements in a transaction.
// The transaction is serialized using the same write mutex.
// If the provided function returns an error, the transaction is rolled back.
func (m *Manager) ExecTx(ctx context.Context, fn func(*sql.Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// DB returns the underlying database connection.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
