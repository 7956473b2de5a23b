// Package stmt compiles generated SQL into executable statements and caches them.
//
// Generated SQL names its arguments with #{Name} bindings. Compiling a statement
// resolves every binding against the parameter type (a struct field path or a
// map key) and rewrites it to the dialect's positional placeholder.
package stmt

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrBadBinding is returned for malformed or unresolvable #{...} bindings.
var ErrBadBinding = errors.New("bad binding")

// Key identifies a compiled statement.
type Key struct {
	Op        string
	ParamType string // full name of the parameter type
	Hash      uint64 // xxhash of the source SQL
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%016x", k.Op, k.ParamType, k.Hash)
}

// Binding is one positional argument.
type Binding struct {
	Name  string
	Index []int // field path for struct parameters, nil for map parameters
}

// Statement is a compiled, immutable statement.
type Statement struct {
	ID         string
	Key        Key
	Op         string
	Table      string
	SQL        string // dialect SQL with positional placeholders
	Source     string // SQL as generated, with named bindings
	Bindings   []Binding
	ParamType  reflect.Type
	ResultType reflect.Type
}

// Args extracts the positional arguments from param. A field behind a nil
// embedded pointer fails with ErrBadBinding.
func (s *Statement) Args(param any) ([]any, error) {
	if len(s.Bindings) == 0 {
		return nil, nil
	}
	v := reflect.ValueOf(param)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%s: %w: nil parameter", s.ID, ErrBadBinding)
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, fmt.Errorf("%s: %w: nil parameter", s.ID, ErrBadBinding)
	}
	if v.Type() != s.ParamType {
		return nil, fmt.Errorf("%s: %w: parameter is %s, compiled for %s", s.ID, ErrBadBinding, v.Type(), s.ParamType)
	}

	args := make([]any, len(s.Bindings))
	switch v.Kind() {
	case reflect.Struct:
		for i, b := range s.Bindings {
			fv, err := v.FieldByIndexErr(b.Index)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %s: %w", s.ID, ErrBadBinding, b.Name, err)
			}
			args[i] = fv.Interface()
		}
	case reflect.Map:
		for i, b := range s.Bindings {
			mv := v.MapIndex(reflect.ValueOf(b.Name).Convert(v.Type().Key()))
			if !mv.IsValid() {
				return nil, fmt.Errorf("%s: %w: missing parameter %q", s.ID, ErrBadBinding, b.Name)
			}
			args[i] = mv.Interface()
		}
	}
	return args, nil
}
