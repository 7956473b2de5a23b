package model

import (
	"fmt"
	"reflect"
)

// Field represents a database column mapped from a struct field
type Field struct {
	Name   string       // Struct field name
	Column string       // DB column name, unquoted
	Quoted string       // Column quoted for the registry's dialect
	Type   reflect.Type // Field type
	Index  []int        // Index path, including embedded structs
	IsPK   bool         // Is primary key
	IsAuto bool         // Is auto-increment, skipped on insert
	Tag    string       // Raw tag string
}

// SelectColumn pairs a quoted column with the alias read results are mapped back through.
type SelectColumn struct {
	Column string
	Alias  string
}

// Value reads the field from an entity value (struct or pointer to struct).
// A nil embedded pointer on the path is reported as an error, never as a null value.
func (f *Field) Value(entity reflect.Value) (reflect.Value, error) {
	for entity.Kind() == reflect.Ptr {
		if entity.IsNil() {
			return reflect.Value{}, ErrNilEntity
		}
		entity = entity.Elem()
	}
	v, err := entity.FieldByIndexErr(f.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("read field %s: %w", f.Name, err)
	}
	return v, nil
}
