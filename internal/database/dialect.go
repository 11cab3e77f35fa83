package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// InsertIgnoreQuery builds an INSERT that silently skips rows violating a unique key
	InsertIgnoreQuery(table string, columns ...string) string

	// IsUniqueViolation reports whether err is a unique constraint failure
	IsUniqueViolation(err error) bool

	// ResetSequenceQuery returns the statement that realigns the id generator
	// after rows were inserted with explicit ids, or "" when none is needed
	ResetSequenceQuery(table string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

func insertColumns(table string, columns []string) (string, string) {
	cols := ""
	marks := ""
	for i, c := range columns {
		if i > 0 {
			cols += ", "
			marks += ", "
		}
		cols += c
		marks += "?"
	}
	return table + " (" + cols + ")", "VALUES (" + marks + ")"
}
