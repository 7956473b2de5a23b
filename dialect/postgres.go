package dialect

import (
	"strconv"
)

// PostgreSQL dialect implementation, shared by the lib/pq and pgx drivers
type postgres struct{}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) Quote(name string) string {
	// PostgreSQL uses double quotes for identifiers
	return `"` + name + `"`
}

func (d *postgres) Placeholder(index int) string {
	// PostgreSQL uses $1, $2, $3... for placeholders
	return "$" + strconv.Itoa(index)
}
