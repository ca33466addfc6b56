package database

// Dialect abstracts all database-specific SQL generation. Each backend
// (SQLite, PostgreSQL) implements this interface; the shared SQLStore logic
// in database.go stays backend-agnostic.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection. For SQLite
	// this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based
	// index. SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// CreateTableSQL returns the DDL for the kill_events table.
	CreateTableSQL() string

	// AuxiliaryDDL returns backend-specific statements run after the main
	// table exists: the FTS5 shadow table for SQLite, the tsvector
	// expression index for PostgreSQL.
	AuxiliaryDDL() []string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string

	// UpsertEventSQL returns the parameterized insert-or-update-by-id
	// statement for a kill_events row. Parameter order: id, timestamp,
	// payload, player_involved, source, inserted_at, fingerprint,
	// search_text.
	UpsertEventSQL() string

	// SearchCondition returns the WHERE fragment implementing full-text
	// matching, with one parameter at the given 1-based index.
	SearchCondition(paramIdx int) string

	// SearchQueryString rewrites a user search string into the backend's
	// match syntax with prefix-matching per term.
	SearchQueryString(query string) string

	// DeleteSearchRowSQL and InsertSearchRowSQL keep the full-text index
	// aligned inside the write transaction. Backends that index the table
	// directly return "" and the store skips them.
	DeleteSearchRowSQL() string // params: event_id
	InsertSearchRowSQL() string // params: event_id, search_text

	// DateFormatSQL returns a SQL expression that formats/truncates a
	// timestamp column. SQLite uses strftime; PostgreSQL uses to_char.
	DateFormatSQL(column, format string) string
}
