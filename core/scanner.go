package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shrek82/jdao/model"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeScanner scans time columns that drivers report as time.Time, text or
// bytes. MySQL zero dates and empty strings scan as invalid.
type TimeScanner struct {
	Value time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (ts *TimeScanner) Scan(src any) error {
	ts.Value, ts.Valid = time.Time{}, false
	var s string
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		ts.Value, ts.Valid = v, true
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}

	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			ts.Value, ts.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", s)
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// scanRows appends every row to dest, a pointer to a slice of structs or
// struct pointers. Columns match a field by alias, then by column name;
// unmatched columns are discarded.
func scanRows(rows *sql.Rows, tables *model.Registry, dest any) (int64, error) {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() || dv.Elem().Kind() != reflect.Slice {
		return 0, fmt.Errorf("%w: %T is not a pointer to a slice", ErrBadDestination, dest)
	}
	slice := dv.Elem()
	elemType := slice.Type().Elem()
	structType := elemType
	if elemType.Kind() == reflect.Ptr {
		structType = elemType.Elem()
	}
	table, err := tables.Table(structType)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadDestination, err)
	}

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	fields := make([]*model.Field, len(cols))
	for i, c := range cols {
		if f, ok := table.Lookup(c); ok {
			fields[i] = f
		}
	}

	var n int64
	targets := make([]any, len(cols))
	for rows.Next() {
		item := reflect.New(structType)
		var finish []func()
		for i, f := range fields {
			if f == nil {
				targets[i] = new(any)
				continue
			}
			target, fn := scanTarget(fieldAlloc(item.Elem(), f.Index))
			targets[i] = target
			if fn != nil {
				finish = append(finish, fn)
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return n, fmt.Errorf("scan %s: %w", table.Name, err)
		}
		for _, fn := range finish {
			fn()
		}
		if elemType.Kind() == reflect.Ptr {
			slice.Set(reflect.Append(slice, item))
		} else {
			slice.Set(reflect.Append(slice, item.Elem()))
		}
		n++
	}
	return n, rows.Err()
}

// scanScalar reads the first column of the first row.
func scanScalar(rows *sql.Rows, dest any) error {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrRecordNotFound
	}
	return rows.Scan(dest)
}

// fieldAlloc returns the field at index, allocating nil embedded pointers on the way.
func fieldAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// scanTarget returns where to scan a column for field fv and an optional step
// copying the scanned value into the field. NULL leaves non-pointer fields zero.
func scanTarget(fv reflect.Value) (any, func()) {
	switch {
	case fv.Type() == timeType:
		ts := &TimeScanner{}
		return ts, func() {
			if ts.Valid {
				fv.Set(reflect.ValueOf(ts.Value))
			}
		}
	case fv.Type() == reflect.PointerTo(timeType):
		ts := &TimeScanner{}
		return ts, func() {
			if ts.Valid {
				t := ts.Value
				fv.Set(reflect.ValueOf(&t))
			}
		}
	case fv.Kind() == reflect.Ptr, reflect.PointerTo(fv.Type()).Implements(scannerType):
		return fv.Addr().Interface(), nil
	}
	holder := reflect.New(reflect.PointerTo(fv.Type()))
	return holder.Interface(), func() {
		if p := holder.Elem(); !p.IsNil() {
			fv.Set(p.Elem())
		}
	}
}
