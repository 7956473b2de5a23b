package query

import (
	"strings"
)

// Fragments holds the parts of a SELECT statement. Custom builders receive a
// Fragments seeded with the select list and a bare FROM table and return the
// version to render.
type Fragments struct {
	Select  string
	From    string
	Where   []string // joined with AND
	GroupBy string
	OrderBy string
	Tail    string // appended verbatim, e.g. "LIMIT 10"
}

// And appends a predicate.
func (f *Fragments) And(cond string) *Fragments {
	if cond != "" {
		f.Where = append(f.Where, cond)
	}
	return f
}

// Order sets the ORDER BY text.
func (f *Fragments) Order(orderBy string) *Fragments {
	f.OrderBy = orderBy
	return f
}

// SQL renders the statement. Empty clauses are omitted.
func (f *Fragments) SQL() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if f.Select != "" {
		sb.WriteString(f.Select)
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(f.From)

	if len(f.Where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(f.Where, " AND "))
	}
	if f.GroupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(f.GroupBy)
	}
	if f.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(f.OrderBy)
	}
	if f.Tail != "" {
		sb.WriteString(" ")
		sb.WriteString(f.Tail)
	}
	return sb.String()
}

// Bind returns the named binding marker for a parameter.
func Bind(name string) string {
	return "#{" + name + "}"
}
