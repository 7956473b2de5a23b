package dialect

import (
	"sync"
)

// Dialect represents the database-specific parts of SQL generation.
// Each database (MySQL, SQLite, etc.) must implement this interface to be supported.
type Dialect interface {
	// Name returns the canonical dialect name
	Name() string
	// Quote wraps a name (table, column or alias) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind marker for the 1-based argument index
	Placeholder(index int) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

func init() {
	Register("mysql", &mysql{})
	Register("sqlite3", &sqlite3{})
	Register("postgres", &postgres{})
	Register("pgx", &postgres{})
	Register("sqlserver", &sqlserver{})
	Register("mssql", &sqlserver{})
}

// Register registers a dialect for a given driver name
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}
