package query

import "strings"

// Dialect supplies the parameter placeholder syntax for a backend. Filters
// render with "?" placeholders; Rebind rewrites them for backends that use
// numbered parameters.
type Dialect interface {
	// Placeholder returns the parameter placeholder for the given 1-based
	// index. SQLite returns "?" (ignoring the index), PostgreSQL returns
	// "$1", "$2", etc.
	Placeholder(index int) string
}

// sqliteDialect is the default dialect; its placeholders match what Filter
// renders, so Rebind is a no-op under it.
type sqliteDialect struct{}

func (d sqliteDialect) Placeholder(index int) string { return "?" }

// DefaultDialect is the query dialect used when none is explicitly set.
var DefaultDialect Dialect = sqliteDialect{}

// Rebind rewrites "?" placeholders in a rendered clause into the dialect's
// numbered form. Question marks inside single-quoted literals are left alone.
func Rebind(sql string, d Dialect) string {
	if d == nil {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql))
	n := 0
	inQuote := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
