package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shrek82/jdao/model"
)

// Params carries named arguments for statements that are not bound against an
// entity. Keys are the names used in #{...} bindings.
type Params map[string]any

// Input is everything a provider may need. Each op reads only its own fields.
type Input struct {
	Entity  any // payload or criteria: T or *T
	ID      any
	Column  string
	IDs     []any
	OrderBy string
	Custom  func(*Fragments) *Fragments
	Params  Params // arguments for bindings written by Custom when Entity is nil
	Wrapper Source
}

// Output is generated SQL with named bindings and the value they are bound against.
type Output struct {
	SQL   string
	Param any // the entity value or Params
}

// Provider generates the SQL for one op.
type Provider interface {
	Build(in Input, t *model.Table) (Output, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(in Input, t *model.Table) (Output, error)

// Build calls f.
func (f ProviderFunc) Build(in Input, t *model.Table) (Output, error) {
	return f(in, t)
}

var providers = [...]Provider{
	OpInsert:          ProviderFunc(insertSQL),
	OpBatchInsert:     ProviderFunc(insertSQL),
	OpUpdate:          ProviderFunc(updateSQL),
	OpUpdateSelective: ProviderFunc(updateSelectiveSQL),
	OpDelete:          ProviderFunc(deleteSQL),
	OpDeleteByID:      ProviderFunc(deleteByIDSQL),
	OpSelectByID:      ProviderFunc(selectByIDSQL),
	OpSelectAll:       ProviderFunc(selectAllSQL),
	OpSelect:          ProviderFunc(selectSQL),
	OpSelectIn:        ProviderFunc(selectInSQL),
	OpSelectCustom:    ProviderFunc(selectCustomSQL),
	OpSelectWrapper:   ProviderFunc(selectWrapperSQL),
	OpCount:           ProviderFunc(countSQL),
}

// ProviderFor returns the provider registered for op.
func ProviderFor(op Op) (Provider, error) {
	if op < 0 || op >= opCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, int(op))
	}
	return providers[op], nil
}

// Build generates the SQL of op for table t.
func Build(op Op, in Input, t *model.Table) (Output, error) {
	p, err := ProviderFor(op)
	if err != nil {
		return Output{}, err
	}
	out, err := p.Build(in, t)
	if err != nil {
		return Output{}, fmt.Errorf("%s %s: %w", op, t.Name, err)
	}
	return out, nil
}

// entityValue dereferences an entity and checks it belongs to t.
// ok is false for a nil interface or nil pointer.
func entityValue(entity any, t *model.Table) (v reflect.Value, ok bool, err error) {
	if entity == nil {
		return reflect.Value{}, false, nil
	}
	v = reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false, nil
		}
		v = v.Elem()
	}
	if v.Type() != t.Type {
		return reflect.Value{}, false, fmt.Errorf("%w: %s for table %s", ErrEntityMismatch, v.Type(), t.Type)
	}
	return v, true, nil
}

func requireEntity(entity any, t *model.Table) (reflect.Value, error) {
	v, ok, err := entityValue(entity, t)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, model.ErrNilEntity
	}
	return v, nil
}

// nonNull returns the fields of v that are not null. A field behind a nil
// embedded pointer is an error.
func nonNull(v reflect.Value, fields []*model.Field) ([]*model.Field, error) {
	var out []*model.Field
	for _, f := range fields {
		fv, err := f.Value(v)
		if err != nil {
			return nil, err
		}
		null, err := model.IsNull(fv)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if !null {
			out = append(out, f)
		}
	}
	return out, nil
}

// readable fails when a field the statement binds cannot be read from v.
func readable(v reflect.Value, fields []*model.Field) error {
	for _, f := range fields {
		if _, err := f.Value(v); err != nil {
			return err
		}
	}
	return nil
}

func equalities(fields []*model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Quoted + " = " + Bind(f.Name)
	}
	return out
}

// criteria builds the WHERE predicates of a criteria object. A nil entity has none.
func criteria(entity any, t *model.Table) ([]string, any, error) {
	v, ok, err := entityValue(entity, t)
	if err != nil || !ok {
		return nil, Params{}, err
	}
	fields, err := nonNull(v, t.Fields)
	if err != nil {
		return nil, nil, err
	}
	if len(fields) == 0 {
		return nil, Params{}, nil
	}
	return equalities(fields), v.Interface(), nil
}

func insertSQL(in Input, t *model.Table) (Output, error) {
	v, err := requireEntity(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	var (
		cols, binds []string
		fields      []*model.Field
	)
	for _, f := range t.Fields {
		if f.IsAuto {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, f.Quoted)
		binds = append(binds, Bind(f.Name))
	}
	if len(cols) == 0 {
		return Output{}, ErrNoColumns
	}
	if err := readable(v, fields); err != nil {
		return Output{}, err
	}
	sql := "INSERT INTO " + t.Quoted + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(binds, ", ") + ")"
	return Output{SQL: sql, Param: v.Interface()}, nil
}

func updateSQL(in Input, t *model.Table) (Output, error) {
	v, err := requireEntity(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	if t.PKField == nil {
		return Output{}, ErrNoPrimaryKey
	}
	var set []*model.Field
	for _, f := range t.Fields {
		if f != t.PKField {
			set = append(set, f)
		}
	}
	return updateOutput(v, t, set)
}

func updateSelectiveSQL(in Input, t *model.Table) (Output, error) {
	v, err := requireEntity(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	if t.PKField == nil {
		return Output{}, ErrNoPrimaryKey
	}
	fields, err := nonNull(v, t.Fields)
	if err != nil {
		return Output{}, err
	}
	var set []*model.Field
	for _, f := range fields {
		if f != t.PKField {
			set = append(set, f)
		}
	}
	return updateOutput(v, t, set)
}

func updateOutput(v reflect.Value, t *model.Table, set []*model.Field) (Output, error) {
	if len(set) == 0 {
		return Output{}, ErrEmptyUpdate
	}
	if err := readable(v, append([]*model.Field{t.PKField}, set...)); err != nil {
		return Output{}, err
	}
	sql := "UPDATE " + t.Quoted + " SET " + strings.Join(equalities(set), ", ") +
		" WHERE " + t.PrimaryKey + " = " + Bind(t.PKField.Name)
	return Output{SQL: sql, Param: v.Interface()}, nil
}

func deleteSQL(in Input, t *model.Table) (Output, error) {
	where, param, err := criteria(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	if len(where) == 0 {
		return Output{}, ErrEmptyCriteria
	}
	return Output{SQL: "DELETE FROM " + t.Quoted + " WHERE " + strings.Join(where, " AND "), Param: param}, nil
}

func deleteByIDSQL(in Input, t *model.Table) (Output, error) {
	sql := "DELETE FROM " + t.Quoted + " WHERE " + t.PrimaryKey + " = " + Bind("id")
	return Output{SQL: sql, Param: Params{"id": in.ID}}, nil
}

func baseSelect(t *model.Table) *Fragments {
	return &Fragments{Select: t.SelectList(), From: t.Quoted}
}

func selectByIDSQL(in Input, t *model.Table) (Output, error) {
	f := baseSelect(t).And(t.PrimaryKey + " = " + Bind("id"))
	return Output{SQL: f.SQL(), Param: Params{"id": in.ID}}, nil
}

func selectAllSQL(in Input, t *model.Table) (Output, error) {
	f := baseSelect(t)
	if in.OrderBy != "" {
		f.Order(in.OrderBy)
	} else {
		f.Order(t.PrimaryKey + " DESC")
	}
	return Output{SQL: f.SQL(), Param: Params{}}, nil
}

func selectSQL(in Input, t *model.Table) (Output, error) {
	where, param, err := criteria(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	f := baseSelect(t)
	f.Where = where
	return Output{SQL: f.SQL(), Param: param}, nil
}

func countSQL(in Input, t *model.Table) (Output, error) {
	where, param, err := criteria(in.Entity, t)
	if err != nil {
		return Output{}, err
	}
	f := &Fragments{Select: "COUNT(*)", From: t.Quoted, Where: where}
	return Output{SQL: f.SQL(), Param: param}, nil
}

// selectInSQL filters by a set of values of one column. An empty set renders
// "1=1": no filter at all, every row matches.
func selectInSQL(in Input, t *model.Table) (Output, error) {
	col, ok := t.Lookup(in.Column)
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownColumn, in.Column)
	}
	f := baseSelect(t)
	params := Params{}
	if len(in.IDs) == 0 {
		f.And("1=1")
		return Output{SQL: f.SQL(), Param: params}, nil
	}
	binds := make([]string, len(in.IDs))
	for i, id := range in.IDs {
		name := "ids." + strconv.Itoa(i)
		binds[i] = Bind(name)
		params[name] = id
	}
	f.And(col.Quoted + " IN (" + strings.Join(binds, ", ") + ")")
	return Output{SQL: f.SQL(), Param: params}, nil
}

func selectCustomSQL(in Input, t *model.Table) (Output, error) {
	f := baseSelect(t)
	if in.Custom != nil {
		if out := in.Custom(f); out != nil {
			f = out
		}
	}
	if in.Entity != nil {
		v, ok, err := entityValue(in.Entity, t)
		if err != nil {
			return Output{}, err
		}
		if ok {
			return Output{SQL: f.SQL(), Param: v.Interface()}, nil
		}
	}
	if in.Params != nil {
		return Output{SQL: f.SQL(), Param: in.Params}, nil
	}
	return Output{SQL: f.SQL(), Param: Params{}}, nil
}

func selectWrapperSQL(in Input, t *model.Table) (Output, error) {
	f := baseSelect(t)
	if in.Wrapper != nil {
		if err := in.Wrapper.Err(); err != nil {
			return Output{}, err
		}
		f.And(in.Wrapper.WhereSQL())
		f.Order(in.Wrapper.OrderBySQL())
	}
	return Output{SQL: f.SQL(), Param: Params{}}, nil
}
