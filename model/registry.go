package model

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Quoter quotes identifiers for a SQL dialect.
type Quoter interface {
	Quote(name string) string
}

type backtick struct{}

func (backtick) Quote(name string) string { return "`" + name + "`" }

// Registry memoizes table metadata per entity type. Entries are computed on
// first use and never evicted; a Registry lives as long as the DB that owns it.
type Registry struct {
	quoter Quoter
	tables sync.Map // reflect.Type -> *Table
	group  singleflight.Group
	parses atomic.Int64
}

// NewRegistry creates an empty registry quoting identifiers with q.
// A nil q quotes with backticks.
func NewRegistry(q Quoter) *Registry {
	if q == nil {
		q = backtick{}
	}
	return &Registry{quoter: q}
}

var defaultRegistry = NewRegistry(nil)

// Default returns the process-wide registry (backtick quoting).
func Default() *Registry {
	return defaultRegistry
}

// Quote quotes an identifier with the registry's dialect.
func (r *Registry) Quote(name string) string {
	return r.quoter.Quote(name)
}

// Table returns the metadata for typ, parsing it once.
func (r *Registry) Table(typ reflect.Type) (*Table, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidEntity)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if cached, ok := r.tables.Load(typ); ok {
		return cached.(*Table), nil
	}

	v, err, _ := r.group.Do(typ.PkgPath()+"."+typ.String(), func() (any, error) {
		if cached, ok := r.tables.Load(typ); ok {
			return cached, nil
		}
		r.parses.Add(1)
		t, err := parseTable(typ, r.quoter.Quote)
		if err != nil {
			return nil, err
		}
		actual, _ := r.tables.LoadOrStore(typ, t)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// TableOf returns the metadata for the type of value.
func (r *Registry) TableOf(value any) (*Table, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: value is nil", ErrInvalidEntity)
	}
	return r.Table(reflect.TypeOf(value))
}

// Parses reports how many times reflection metadata was actually built.
func (r *Registry) Parses() int64 {
	return r.parses.Load()
}

// TableFor returns the metadata for entity type T.
func TableFor[T any](r *Registry) (*Table, error) {
	if r == nil {
		r = defaultRegistry
	}
	return r.Table(reflect.TypeOf((*T)(nil)).Elem())
}

// GetModel returns the metadata for value from the default registry.
func GetModel(value any) (*Table, error) {
	return defaultRegistry.TableOf(value)
}
