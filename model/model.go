package model

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
)

// DefaultPrimaryKey is the column used when no field carries the pk tag.
const DefaultPrimaryKey = "id"

// Meta is a zero-size marker that can be embedded in an entity to carry
// table level options. It never maps to a column.
//
//	type User struct {
//		_  model.Meta `jdao:"table:sys_user"`
//		ID int64      `jdao:"pk auto"`
//	}
type Meta struct{}

var metaType = reflect.TypeOf(Meta{})

// Tabler lets an entity override its table name.
type Tabler interface {
	TableName() string
}

// Table represents the table metadata of an entity type. It is immutable once built.
type Table struct {
	Type          reflect.Type
	Name          string // table name, unquoted
	Quoted        string
	Fields        []*Field
	Columns       []string // quoted, same order as Fields
	SelectColumns []SelectColumn
	PrimaryKey    string // quoted primary key column
	PKField       *Field // nil when the default key has no backing field

	byName     map[string]*Field
	byColumn   map[string]*Field
	selectList string
}

// FieldByName looks a field up by its Go name.
func (t *Table) FieldByName(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// FieldByColumn looks a field up by its unquoted column name.
func (t *Table) FieldByColumn(column string) (*Field, bool) {
	f, ok := t.byColumn[column]
	return f, ok
}

// Lookup resolves either a Go field name or a column name, case-insensitively as a last resort.
func (t *Table) Lookup(name string) (*Field, bool) {
	if f, ok := t.byName[name]; ok {
		return f, true
	}
	if f, ok := t.byColumn[name]; ok {
		return f, true
	}
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.Column, name) {
			return f, true
		}
	}
	return nil, false
}

// SelectList renders the select columns, each aliased back to its field name.
func (t *Table) SelectList() string {
	return t.selectList
}

func parseTable(typ reflect.Type, quote func(string) string) (*Table, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidEntity)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is a %s, not a struct", ErrInvalidEntity, typ, typ.Kind())
	}
	if typ.Name() == "" {
		return nil, fmt.Errorf("%w: anonymous struct %s", ErrInvalidEntity, typ)
	}

	t := &Table{
		Type:     typ,
		byName:   make(map[string]*Field),
		byColumn: make(map[string]*Field),
	}

	var (
		tableOverride string
		candidates    []*Field
	)
	collectFields(typ, nil, quote, &candidates, &tableOverride)
	for _, f := range dominantFields(candidates) {
		t.Fields = append(t.Fields, f)
		t.Columns = append(t.Columns, f.Quoted)
		t.SelectColumns = append(t.SelectColumns, SelectColumn{Column: f.Quoted, Alias: f.Name})
		t.byName[f.Name] = f
		t.byColumn[f.Column] = f
	}

	switch {
	case tableOverride != "":
		t.Name = tableOverride
	case reflect.PointerTo(typ).Implements(reflect.TypeOf((*Tabler)(nil)).Elem()):
		t.Name = reflect.New(typ).Interface().(Tabler).TableName()
	default:
		t.Name = ToSnake(typ.Name())
	}
	t.Quoted = quote(t.Name)

	aliased := make([]string, len(t.SelectColumns))
	for i, sc := range t.SelectColumns {
		aliased[i] = sc.Column + " AS " + quote(sc.Alias)
	}
	t.selectList = strings.Join(aliased, ", ")

	for _, f := range t.Fields {
		if f.IsPK {
			t.PKField = f
			break
		}
	}
	if t.PKField == nil {
		// No explicit key: the literal id column, backed by a field only if one maps to it.
		t.PrimaryKey = quote(DefaultPrimaryKey)
		if f, ok := t.byColumn[DefaultPrimaryKey]; ok {
			t.PKField = f
		}
	} else {
		t.PrimaryKey = t.PKField.Quoted
	}

	return t, nil
}

// collectFields walks own and embedded fields depth-first. Embedded structs
// play the role of ancestors; the walk stops at anything that is not a struct.
func collectFields(typ reflect.Type, parent []int, quote func(string) string, out *[]*Field, tableOverride *string) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		index := make([]int, len(parent)+1)
		copy(index, parent)
		index[len(parent)] = i

		tagStr := sf.Tag.Get(TagName)
		tag := ParseTag(tagStr)

		if sf.Type == metaType {
			if tag.Table != "" {
				*tableOverride = tag.Table
			}
			continue
		}
		if sf.Name == "_" || tag.Ignore {
			continue
		}

		if sf.Anonymous && tag.Column == "" {
			et := sf.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && !isValueStruct(et) {
				collectFields(et, index, quote, out, tableOverride)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		column := tag.Column
		if column == "" {
			column = ToSnake(sf.Name)
		}
		*out = append(*out, &Field{
			Name:   sf.Name,
			Column: column,
			Quoted: quote(column),
			Type:   sf.Type,
			Index:  index,
			IsPK:   tag.PrimaryKey,
			IsAuto: tag.AutoInc,
			Tag:    tagStr,
		})
	}
}

// dominantFields applies Go's selector rules to promoted names: the shallowest
// field wins, and names tied at the shallowest depth are dropped as ambiguous.
// Walk order is kept.
func dominantFields(candidates []*Field) []*Field {
	depth := make(map[string]int, len(candidates))
	count := make(map[string]int, len(candidates))
	for _, f := range candidates {
		d, seen := depth[f.Name]
		switch {
		case !seen || len(f.Index) < d:
			depth[f.Name] = len(f.Index)
			count[f.Name] = 1
		case len(f.Index) == d:
			count[f.Name]++
		}
	}
	out := make([]*Field, 0, len(candidates))
	for _, f := range candidates {
		if len(f.Index) == depth[f.Name] && count[f.Name] == 1 {
			out = append(out, f)
		}
	}
	return out
}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

// isValueStruct reports struct types stored as a single column (time.Time, sql.NullString, ...).
func isValueStruct(typ reflect.Type) bool {
	if typ.Implements(valuerType) || reflect.PointerTo(typ).Implements(valuerType) {
		return true
	}
	return typ.PkgPath() == "time" && typ.Name() == "Time"
}

// IsNull reports whether a field value counts as null for criteria and selective updates:
// the zero value of its type, or a driver.Valuer producing nil.
func IsNull(v reflect.Value) (bool, error) {
	if !v.IsValid() {
		return true, nil
	}
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return true, nil
		}
	}
	if v.CanInterface() {
		if valuer, ok := v.Interface().(driver.Valuer); ok {
			dv, err := valuer.Value()
			if err != nil {
				return false, fmt.Errorf("read valuer: %w", err)
			}
			return dv == nil, nil
		}
	}
	return v.IsZero(), nil
}
