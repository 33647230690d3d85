// Package config provides configuration constants and environment settings for app-csv-pkg.
package config

import "time"

// Transform defaults used by every public entry point.
const (
	DefaultEmitHeader            = true
	DefaultSeparator             = ','
	DefaultProtectNumericStrings = false
)

// Invocation identifies the row transform inside SQL text. RelationName is the name
// given to the subquery the rewriter wraps around caller SQL.
const (
	InvocationMarker = "app_csv_pkg.ptf"
	RelationName     = "R_app_csv_pkg_ptf"
)

// Option names as they appear in errors, SQL invocations and request bodies.
const (
	OptionHeader                = "header"
	OptionSeparator             = "separator"
	OptionProtectNumericStrings = "protectNumericStrings"
	OptionNumberFormat          = "numberFormat"
	OptionDateFormat            = "dateFormat"
	OptionIntervalFormat        = "intervalFormat"
	OptionLineTerminator        = "lineTerminator"
)

// Line terminator names.
const (
	LineTerminatorLF   = "LF"
	LineTerminatorCRLF = "CRLF"
)

// Service defaults, overridable through the environment.
const (
	DefaultPort           = "8080"
	DefaultDriver         = "duckdb"
	DefaultDBPath         = ":memory:"
	DefaultExportDir      = "./exports"
	DefaultLineTerminator = LineTerminatorLF
	DefaultJobTTL         = time.Hour
)

// SupportedDrivers lists the database/sql driver names the service binaries register.
var SupportedDrivers = []string{"duckdb", "pgx", "sqlserver", "mssql", "mysql", "snowflake", "sqlite"}

// Environment variable names.
const (
	EnvPort           = "PORT"
	EnvDriver         = "DB_DRIVER"
	EnvDBPath         = "DB_PATH"
	EnvExportDir      = "EXPORT_DIR"
	EnvLineTerminator = "LINE_TERMINATOR"
	EnvJobTTL         = "EXPORT_JOB_TTL"
)
