package query

import (
	"strings"

	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/selector"
)

// Source is the state a wrapper hands to the select-by-wrapper provider.
type Source interface {
	WhereSQL() string
	OrderBySQL() string
	Err() error
}

// Wrapper accumulates predicates and ordering for entity T from column
// selectors. Values are formatted as literals by FormatValue, not bound.
//
//	w := query.NewWrapper[User](nil).
//		Eq(selector.Get((*User).GetName), "Ann").
//		Gt(selector.Ptr(func(u *User) *int { return &u.Age }), 18).
//		OrderByDesc(selector.Field[User]("ID"))
//
// The first selector that cannot be resolved is kept and returned by Err;
// later calls are recorded but the wrapper must not be executed.
type Wrapper[T any] struct {
	registry *model.Registry
	table    *model.Table
	where    []string
	orders   []string
	err      error
}

// NewWrapper creates a wrapper for T. A nil registry uses model.Default().
func NewWrapper[T any](r *model.Registry) *Wrapper[T] {
	if r == nil {
		r = model.Default()
	}
	t, err := model.TableFor[T](r)
	return &Wrapper[T]{registry: r, table: t, err: err}
}

// Eq adds "col = v".
func (w *Wrapper[T]) Eq(col selector.Col[T], v any) *Wrapper[T] {
	return w.compare(col, "=", v)
}

// Ne adds "col <> v".
func (w *Wrapper[T]) Ne(col selector.Col[T], v any) *Wrapper[T] {
	return w.compare(col, "<>", v)
}

// Gt adds "col > v".
func (w *Wrapper[T]) Gt(col selector.Col[T], v any) *Wrapper[T] {
	return w.compare(col, ">", v)
}

// Lt adds "col < v".
func (w *Wrapper[T]) Lt(col selector.Col[T], v any) *Wrapper[T] {
	return w.compare(col, "<", v)
}

// Like adds "col LIKE '%v%'". v is formatted like every other value, so a
// nil v adds "col LIKE NULL".
func (w *Wrapper[T]) Like(col selector.Col[T], v any) *Wrapper[T] {
	c, ok := w.column(col)
	if !ok {
		return w
	}
	lit := FormatValue(v)
	if lit == "NULL" {
		w.where = append(w.where, c+" LIKE NULL")
		return w
	}
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		lit = lit[1 : len(lit)-1]
	}
	w.where = append(w.where, c+" LIKE '%"+lit+"%'")
	return w
}

// Between adds "col BETWEEN lo AND hi".
func (w *Wrapper[T]) Between(col selector.Col[T], lo, hi any) *Wrapper[T] {
	c, ok := w.column(col)
	if !ok {
		return w
	}
	w.where = append(w.where, c+" BETWEEN "+FormatValue(lo)+" AND "+FormatValue(hi))
	return w
}

// In adds "col IN (v1, v2, ...)". No values adds "1 = 0", matching nothing.
func (w *Wrapper[T]) In(col selector.Col[T], values ...any) *Wrapper[T] {
	c, ok := w.column(col)
	if !ok {
		return w
	}
	if len(values) == 0 {
		w.where = append(w.where, "1 = 0")
		return w
	}
	w.where = append(w.where, c+" IN ("+strings.Join(formatValues(values), ", ")+")")
	return w
}

// OrderByAsc appends ascending order columns.
func (w *Wrapper[T]) OrderByAsc(cols ...selector.Col[T]) *Wrapper[T] {
	return w.order("ASC", cols)
}

// OrderByDesc appends descending order columns.
func (w *Wrapper[T]) OrderByDesc(cols ...selector.Col[T]) *Wrapper[T] {
	return w.order("DESC", cols)
}

// WhereSQL returns the predicates joined with AND, or "" when there are none.
func (w *Wrapper[T]) WhereSQL() string {
	return strings.Join(w.where, " AND ")
}

// OrderBySQL returns the order clauses joined with ", ", or "" when there are none.
func (w *Wrapper[T]) OrderBySQL() string {
	return strings.Join(w.orders, ", ")
}

// Err returns the first resolution error.
func (w *Wrapper[T]) Err() error {
	return w.err
}

// Table returns the entity metadata the wrapper maps columns against.
func (w *Wrapper[T]) Table() *model.Table {
	return w.table
}

func (w *Wrapper[T]) compare(col selector.Col[T], op string, v any) *Wrapper[T] {
	c, ok := w.column(col)
	if !ok {
		return w
	}
	w.where = append(w.where, c+" "+op+" "+FormatValue(v))
	return w
}

func (w *Wrapper[T]) order(dir string, cols []selector.Col[T]) *Wrapper[T] {
	for _, col := range cols {
		c, ok := w.column(col)
		if !ok {
			return w
		}
		w.orders = append(w.orders, c+" "+dir)
	}
	return w
}

// column resolves a selector and maps it to the quoted column of T, honoring
// column overrides. Properties that match no field are quoted as-is.
func (w *Wrapper[T]) column(col selector.Col[T]) (string, bool) {
	if w.table == nil {
		return "", false
	}
	d, err := col.Resolve()
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return "", false
	}
	for _, name := range []string{d.Field(), d.Accessor} {
		if f, ok := w.table.FieldByName(name); ok {
			return f.Quoted, true
		}
	}
	if f, ok := w.table.FieldByColumn(d.Property); ok {
		return f.Quoted, true
	}
	return w.registry.Quote(d.Property), true
}
