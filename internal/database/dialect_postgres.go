package database

import (
	"fmt"
	"strings"
)

// PostgreSQLDialect implements the Dialect interface for PostgreSQL databases.
type PostgreSQLDialect struct{}

func (d *PostgreSQLDialect) DriverName() string { return "pgx" }

func (d *PostgreSQLDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }

func (d *PostgreSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgreSQLDialect) CreateTableSQL() string {
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

// AuxiliaryDDL indexes search_text directly; no shadow table needed.
func (d *PostgreSQLDialect) AuxiliaryDDL() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_kill_events_search
			ON kill_events USING gin (to_tsvector('simple', search_text))`,
	}
}

func (d *PostgreSQLDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}

func (d *PostgreSQLDialect) UpsertEventSQL() string {
	return `INSERT INTO kill_events (
		id, timestamp, payload, player_involved, source, inserted_at, fingerprint, search_text
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		timestamp = EXCLUDED.timestamp,
		payload = EXCLUDED.payload,
		player_involved = EXCLUDED.player_involved,
		source = EXCLUDED.source,
		fingerprint = EXCLUDED.fingerprint,
		search_text = EXCLUDED.search_text`
}

func (d *PostgreSQLDialect) SearchCondition(paramIdx int) string {
	return fmt.Sprintf(
		"to_tsvector('simple', search_text) @@ to_tsquery('simple', $%d)", paramIdx)
}

// SearchQueryString builds a tsquery: terms get a prefix wildcard and are
// AND-ed together.
func (d *PostgreSQLDialect) SearchQueryString(query string) string {
	var terms []string
	for _, t := range strings.Fields(query) {
		t = strings.NewReplacer("'", "", "&", "", "|", "", "!", "", "(", "", ")", "", ":", "").Replace(t)
		if t == "" {
			continue
		}
		terms = append(terms, t+":*")
	}
	return strings.Join(terms, " & ")
}

func (d *PostgreSQLDialect) DeleteSearchRowSQL() string { return "" }
func (d *PostgreSQLDialect) InsertSearchRowSQL() string { return "" }

func (d *PostgreSQLDialect) DateFormatSQL(column, format string) string {
	// Translate the strftime-style format used by callers into to_char.
	pg := strings.NewReplacer(
		"%Y", "YYYY", "%m", "MM", "%d", "DD", "%H", "HH24", "%M", "MI", "%S", "SS",
	).Replace(format)
	return fmt.Sprintf("to_char(%s::timestamp, '%s')", column, pg)
}
