package database

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements the Dialect interface for SQLite databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string             { return "sqlite" }
func (d *SQLiteDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *SQLiteDialect) Placeholder(index int) string    { return "?" }

func (d *SQLiteDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS kill_events (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		payload TEXT NOT NULL,
		player_involved INT NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		inserted_at TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		search_text TEXT NOT NULL DEFAULT ''
	)`
}

func (d *SQLiteDialect) AuxiliaryDDL() []string {
	return []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS kill_events_fts USING fts5(
			event_id UNINDEXED, content_text
		)`,
	}
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}

func (d *SQLiteDialect) UpsertEventSQL() string {
	return `INSERT INTO kill_events (
		id, timestamp, payload, player_involved, source, inserted_at, fingerprint, search_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		timestamp = excluded.timestamp,
		payload = excluded.payload,
		player_involved = excluded.player_involved,
		source = excluded.source,
		fingerprint = excluded.fingerprint,
		search_text = excluded.search_text`
}

func (d *SQLiteDialect) SearchCondition(paramIdx int) string {
	return "id IN (SELECT event_id FROM kill_events_fts WHERE kill_events_fts MATCH ?)"
}

// SearchQueryString builds an FTS5 match expression: each term quoted and
// given a prefix wildcard so partial handles and ship names match.
func (d *SQLiteDialect) SearchQueryString(query string) string {
	var terms []string
	for _, t := range strings.Fields(query) {
		t = strings.ReplaceAll(t, `"`, `""`)
		terms = append(terms, fmt.Sprintf(`"%s"*`, t))
	}
	return strings.Join(terms, " ")
}

func (d *SQLiteDialect) DeleteSearchRowSQL() string {
	return "DELETE FROM kill_events_fts WHERE event_id = ?"
}

func (d *SQLiteDialect) InsertSearchRowSQL() string {
	return "INSERT INTO kill_events_fts (event_id, content_text) VALUES (?, ?)"
}

func (d *SQLiteDialect) DateFormatSQL(column, format string) string {
	return fmt.Sprintf("strftime('%s', %s)", format, column)
}
