package database

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// OpenStore opens an event store for the given driver name. "sqlite" takes a
// file path, "postgres" a connection string.
func OpenStore(driver, pathOrConnStr string, opts Options) (Store, error) {
	var dialect Dialect
	switch driver {
	case "sqlite":
		dialect = &SQLiteDialect{}
	case "postgres", "postgresql", "pgx":
		dialect = &PostgreSQLDialect{}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	return Open(dialect, pathOrConnStr, opts)
}
