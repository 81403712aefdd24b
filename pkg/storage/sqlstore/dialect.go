package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect holds the SQL differences between the supported databases
type Dialect struct {
	Name   string
	Driver string

	blobType  string
	timeType  string
	noLimit   string
	numbered  bool
	singleCon bool
}

// Postgres is the PostgreSQL dialect
var Postgres = Dialect{
	Name:     "postgres",
	Driver:   "postgres",
	blobType: "BYTEA",
	timeType: "TIMESTAMPTZ",
	noLimit:  "ALL",
	numbered: true,
}

// SQLite is the embedded SQLite dialect. SQLite serialises writers, so the pool
// is held to a single connection.
var SQLite = Dialect{
	Name:      "sqlite",
	Driver:    "sqlite3",
	blobType:  "BLOB",
	timeType:  "TIMESTAMP",
	noLimit:   "-1",
	singleCon: true,
}

// DialectFor returns the dialect with the given name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// bind rewrites "?" placeholders for dialects with numbered parameters
func (d Dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	// compiled stays TEXT on every dialect: JSONB would reorder keys
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS descriptions (
	id CHAR(24) PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	original %s,
	compiled TEXT NOT NULL,
	created_at %s NOT NULL
)`, d.blobType, d.timeType),
		`CREATE INDEX IF NOT EXISTS idx_descriptions_created_at ON descriptions (created_at)`,
	}
}

func (d Dialect) limit(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	l := d.noLimit
	if limit > 0 {
		l = strconv.Itoa(limit)
	}
	return fmt.Sprintf(" LIMIT %s OFFSET %d", l, offset)
}
