package dialect

import (
	"strconv"
)

// SQL Server dialect implementation
type sqlserver struct{}

func (d *sqlserver) Name() string { return "sqlserver" }

func (d *sqlserver) Quote(name string) string {
	return "[" + name + "]"
}

func (d *sqlserver) Placeholder(index int) string {
	return "@p" + strconv.Itoa(index)
}
