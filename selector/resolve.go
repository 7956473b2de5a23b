package selector

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

type strategyFunc func(ref any) (Descriptor, error)

var strategies = [...]strategyFunc{
	StrategyProxy:      resolveProxy,
	StrategyDescriptor: resolveDescriptor,
	StrategySerialized: resolveSerialized,
}

// Resolve tries each strategy in order. A failing strategy falls through to
// the next one; only when all of them fail is an error returned.
func Resolve(ref any) (Descriptor, error) {
	if ref == nil {
		return Descriptor{}, fmt.Errorf("%w: nil selector", ErrUnresolvable)
	}
	var errs []error
	for s, fn := range strategies {
		d, err := fn(ref)
		if err == nil {
			return d, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", Strategy(s), err))
	}
	return Descriptor{}, fmt.Errorf("%w (%T): %w", ErrUnresolvable, ref, errors.Join(errs...))
}

// ResolveWith runs a single strategy.
func ResolveWith(s Strategy, ref any) (Descriptor, error) {
	if s < 0 || int(s) >= len(strategies) {
		return Descriptor{}, fmt.Errorf("unknown strategy %d", s)
	}
	if ref == nil {
		return Descriptor{}, fmt.Errorf("%w: nil selector", ErrUnresolvable)
	}
	return strategies[s](ref)
}

var errNotFunc = errors.New("not a func")

// resolveProxy unwraps a func reference. Field-address accessors are invoked on
// a probe value and the returned pointer is matched to a field offset; any
// other func must be a method expression or method value, named by the runtime.
func resolveProxy(ref any) (Descriptor, error) {
	fv := reflect.ValueOf(ref)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return Descriptor{}, errNotFunc
	}
	ft := fv.Type()

	var owner reflect.Type
	if ft.NumIn() == 1 {
		owner = ft.In(0)
		for owner.Kind() == reflect.Ptr {
			owner = owner.Elem()
		}
	}

	if ft.NumIn() == 1 && ft.NumOut() == 1 && ft.In(0).Kind() == reflect.Ptr &&
		ft.In(0).Elem().Kind() == reflect.Struct && ft.Out(0).Kind() == reflect.Ptr {
		if name, ok := probeFieldAddress(fv); ok {
			return Descriptor{
				Property: Normalize(name),
				Accessor: name,
				Owner:    owner,
				Strategy: StrategyProxy,
			}, nil
		}
	}

	fn := runtime.FuncForPC(fv.Pointer())
	if fn == nil {
		return Descriptor{}, errors.New("no runtime symbol")
	}
	receiver, method, err := splitMethodSymbol(fn.Name())
	if err != nil {
		return Descriptor{}, err
	}
	d := Descriptor{
		Property:  Normalize(method),
		Accessor:  method,
		Owner:     owner,
		OwnerName: receiver,
		Strategy:  StrategyProxy,
	}
	return d, nil
}

func probeFieldAddress(fv reflect.Value) (name string, ok bool) {
	defer func() {
		if recover() != nil {
			name, ok = "", false
		}
	}()

	structType := fv.Type().In(0).Elem()
	probe := reflect.New(structType)
	out := fv.Call([]reflect.Value{probe})[0]
	if out.IsNil() {
		return "", false
	}
	return matchField(probe.Elem(), out.Pointer(), out.Type().Elem())
}

// matchField finds the field of v (including promoted ones) stored at addr with type typ.
func matchField(v reflect.Value, addr uintptr, typ reflect.Type) (string, bool) {
	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		fv := v.Field(i)
		if fv.UnsafeAddr() == addr && sf.Type == typ {
			return sf.Name, true
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if name, ok := matchField(fv, addr, typ); ok {
				return name, true
			}
		}
	}
	return "", false
}

var closureSuffix = regexp.MustCompile(`^(func\d+|\d+)$`)

// splitMethodSymbol parses runtime symbols such as
// "example.com/app/model.(*User).GetUserName" or "model.User.Name-fm".
func splitMethodSymbol(symbol string) (receiver, method string, err error) {
	if i := strings.LastIndex(symbol, "/"); i >= 0 {
		symbol = symbol[i+1:]
	}
	symbol = strings.TrimSuffix(symbol, "-fm")

	parts := strings.Split(symbol, ".")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%s is a plain function, not a method", symbol)
	}
	method = parts[len(parts)-1]
	if closureSuffix.MatchString(method) {
		return "", "", fmt.Errorf("%s is a closure", symbol)
	}
	receiver = parts[len(parts)-2]
	receiver = strings.TrimPrefix(receiver, "(*")
	receiver = strings.TrimSuffix(receiver, ")")
	if i := strings.Index(receiver, "["); i >= 0 {
		receiver = receiver[:i]
	}
	if receiver == "" || closureSuffix.MatchString(receiver) {
		return "", "", fmt.Errorf("%s has no receiver", symbol)
	}
	return receiver, method, nil
}

func resolveDescriptor(ref any) (Descriptor, error) {
	d, ok := ref.(Describer)
	if !ok {
		return Descriptor{}, errors.New("no descriptor accessor")
	}
	desc := d.SelectorDescriptor()
	if desc.Accessor == "" {
		return Descriptor{}, errors.New("empty descriptor")
	}
	desc.Property = Normalize(desc.Accessor)
	desc.Strategy = StrategyDescriptor
	return desc, nil
}

// shadowRecord has the field layout of a serialized selector record. Decoding
// into it avoids depending on whatever type produced the record.
type shadowRecord struct {
	ImplClass      string `msgpack:"implClass"`
	ImplMethodName string `msgpack:"implMethodName"`
}

func resolveSerialized(ref any) (Descriptor, error) {
	data, ok := ref.([]byte)
	if !ok {
		var err error
		data, err = msgpack.Marshal(ref)
		if err != nil {
			return Descriptor{}, fmt.Errorf("serialize: %w", err)
		}
	}

	var rec shadowRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Descriptor{}, fmt.Errorf("deserialize: %w", err)
	}
	if rec.ImplMethodName == "" {
		return Descriptor{}, errors.New("record has no implMethodName")
	}

	owner := rec.ImplClass
	if i := strings.LastIndexAny(owner, "./"); i >= 0 {
		owner = owner[i+1:]
	}
	return Descriptor{
		Property:  Normalize(rec.ImplMethodName),
		Accessor:  rec.ImplMethodName,
		OwnerName: owner,
		Strategy:  StrategySerialized,
	}, nil
}
