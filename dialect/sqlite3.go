package dialect

// SQLite dialect implementation. SQLite accepts MySQL style backticks.
type sqlite3 struct{}

func (d *sqlite3) Name() string { return "sqlite3" }

func (d *sqlite3) Quote(name string) string {
	return "`" + name + "`"
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}
