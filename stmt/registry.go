package stmt

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/shrek82/jdao/model"
)

// Spec describes a statement to register.
type Spec struct {
	Op         string
	Table      string
	SQL        string // with #{...} bindings
	Param      any    // sample parameter; only its type is used
	ResultType reflect.Type
	// Meta, when it describes the parameter type, resolves struct bindings by
	// the mapped field's index path instead of by Go name lookup.
	Meta *model.Table
}

// Registry caches compiled statements by Key. Registration is idempotent and
// safe for concurrent use; entries are never evicted.
type Registry struct {
	placeholder func(int) string
	stmts       sync.Map // string -> *Statement
	group       singleflight.Group
	size        atomic.Int64
	compiles    atomic.Int64
}

// NewRegistry creates a registry rewriting bindings with placeholder, which
// receives the 1-based argument position. A nil placeholder writes "?".
func NewRegistry(placeholder func(int) string) *Registry {
	if placeholder == nil {
		placeholder = func(int) string { return "?" }
	}
	return &Registry{placeholder: placeholder}
}

// KeyOf computes the key of a spec.
func KeyOf(spec Spec) Key {
	return Key{Op: spec.Op, ParamType: typeName(paramType(spec.Param)), Hash: xxhash.Sum64String(spec.SQL)}
}

// Register returns the statement for spec, compiling it on first use.
func (r *Registry) Register(spec Spec) (*Statement, error) {
	key := KeyOf(spec)
	id := key.String()
	if s, ok := r.stmts.Load(id); ok {
		return s.(*Statement), nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if s, ok := r.stmts.Load(id); ok {
			return s, nil
		}
		pt := paramType(spec.Param)
		r.compiles.Add(1)
		sql, bindings, err := compile(spec.SQL, pt, spec.Meta, r.placeholder)
		if err != nil {
			return nil, err
		}
		s := &Statement{
			ID:         id,
			Key:        key,
			Op:         spec.Op,
			Table:      spec.Table,
			SQL:        sql,
			Source:     spec.SQL,
			Bindings:   bindings,
			ParamType:  pt,
			ResultType: spec.ResultType,
		}
		actual, loaded := r.stmts.LoadOrStore(id, s)
		if !loaded {
			r.size.Add(1)
		}
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Statement), nil
}

// Lookup returns a registered statement by id.
func (r *Registry) Lookup(id string) (*Statement, bool) {
	s, ok := r.stmts.Load(id)
	if !ok {
		return nil, false
	}
	return s.(*Statement), true
}

// Len returns the number of registered statements.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Compiles returns how many times a statement was actually compiled.
func (r *Registry) Compiles() int64 {
	return r.compiles.Load()
}

func paramType(param any) reflect.Type {
	if param == nil {
		return nil
	}
	t := reflect.TypeOf(param)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
