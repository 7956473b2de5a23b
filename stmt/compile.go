package stmt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/shrek82/jdao/model"
)

// compile rewrites named bindings to placeholders and resolves each binding
// against paramType, through meta when it maps that type.
func compile(src string, paramType reflect.Type, meta *model.Table, placeholder func(int) string) (string, []Binding, error) {
	var (
		sb       strings.Builder
		bindings []Binding
		rest     = src
	)
	for {
		i := strings.Index(rest, "#{")
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:i])
		rest = rest[i+2:]

		j := strings.IndexByte(rest, '}')
		if j < 0 {
			return "", nil, fmt.Errorf("%w: unterminated #{ in %q", ErrBadBinding, src)
		}
		name := strings.TrimSpace(rest[:j])
		rest = rest[j+1:]
		if name == "" {
			return "", nil, fmt.Errorf("%w: empty #{} in %q", ErrBadBinding, src)
		}

		b, err := resolveBinding(name, paramType, meta)
		if err != nil {
			return "", nil, err
		}
		bindings = append(bindings, b)
		sb.WriteString(placeholder(len(bindings)))
	}
	return sb.String(), bindings, nil
}

func resolveBinding(name string, paramType reflect.Type, meta *model.Table) (Binding, error) {
	if paramType == nil {
		return Binding{}, fmt.Errorf("%w: #{%s} without a parameter", ErrBadBinding, name)
	}
	switch paramType.Kind() {
	case reflect.Struct:
		if meta != nil && meta.Type == paramType {
			if f, ok := meta.FieldByName(name); ok {
				return Binding{Name: name, Index: f.Index}, nil
			}
		}
		sf, ok := paramType.FieldByName(name)
		if !ok {
			return Binding{}, fmt.Errorf("%w: %s has no field %s", ErrBadBinding, paramType, name)
		}
		return Binding{Name: name, Index: sf.Index}, nil
	case reflect.Map:
		if paramType.Key().Kind() != reflect.String {
			return Binding{}, fmt.Errorf("%w: map parameter %s needs string keys", ErrBadBinding, paramType)
		}
		return Binding{Name: name}, nil
	}
	return Binding{}, fmt.Errorf("%w: cannot bind #{%s} against %s", ErrBadBinding, name, paramType)
}
