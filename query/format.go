package query

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// FormatValue renders a value as a SQL literal for the fluent wrapper.
//
// Strings are wrapped in single quotes WITHOUT escaping: "O'Brien" yields a
// broken literal and caller-controlled strings can inject SQL. Only pass
// trusted values; use the criteria based operations for user input, they bind
// parameters instead.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "NULL"
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}

	if t, ok := rv.Interface().(time.Time); ok {
		return "'" + t.Format("2006-01-02 15:04:05") + "'"
	}
	return "'" + fmt.Sprint(rv.Interface()) + "'"
}

func formatValues(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = FormatValue(v)
	}
	return out
}
