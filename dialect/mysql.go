package dialect

// MySQL dialect implementation
type mysql struct{}

func (d *mysql) Name() string { return "mysql" }

func (d *mysql) Quote(name string) string {
	return "`" + name + "`"
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}
