// Package selector turns typed column references into column names.
//
// A Col[T] wraps an opaque reference to one property of entity T. Three kinds
// of reference are understood, tried in this order by Resolve:
//
//   - accessor funcs, unwrapped by reflection (StrategyProxy):
//     selector.Ptr(func(u *User) *string { return &u.Name }) or
//     selector.Get((*User).GetUserName)
//   - compile-time tokens exposing a Descriptor (StrategyDescriptor):
//     selector.Field[User]("UserName"), as emitted by jdao-gen
//   - serialized descriptor records, decoded through msgpack into a local
//     shadow record (StrategySerialized): selector.Of[User](record)
//
// Every strategy normalizes the accessor name the same way, see Normalize.
package selector

import (
	"errors"
	"reflect"
)

// ErrUnresolvable is returned when no strategy can name a selector.
var ErrUnresolvable = errors.New("unresolvable column selector")

// Strategy identifies how a selector was resolved.
type Strategy int

const (
	StrategyProxy Strategy = iota
	StrategyDescriptor
	StrategySerialized
)

func (s Strategy) String() string {
	switch s {
	case StrategyProxy:
		return "proxy"
	case StrategyDescriptor:
		return "descriptor"
	case StrategySerialized:
		return "serialized"
	}
	return "unknown"
}

// Descriptor is the result of resolving a selector.
type Descriptor struct {
	Property  string       // normalized name, e.g. user_name
	Accessor  string       // raw accessor or field name, e.g. GetUserName
	Owner     reflect.Type // declaring type when known
	OwnerName string       // declaring type name when only its text is known
	Strategy  Strategy
}

// Field returns the accessor with any get/set prefix removed, i.e. the Go field
// name the accessor most likely reads.
func (d Descriptor) Field() string {
	return stripAccessorPrefix(d.Accessor)
}

// Describer is implemented by compile-time column tokens.
type Describer interface {
	SelectorDescriptor() Descriptor
}

// Col is a typed reference to a property of T.
type Col[T any] struct {
	ref any
}

// Ref returns the wrapped reference.
func (c Col[T]) Ref() any { return c.ref }

// Resolve names the column the selector refers to.
func (c Col[T]) Resolve() (Descriptor, error) {
	return Resolve(c.ref)
}

// Ptr builds a selector from a func returning the address of a field.
func Ptr[T any, V any](fn func(*T) *V) Col[T] {
	return Col[T]{ref: fn}
}

// Get builds a selector from a getter method expression or method value.
func Get[T any, V any](fn func(*T) V) Col[T] {
	return Col[T]{ref: fn}
}

// Of wraps an arbitrary reference, typically a serialized descriptor record.
func Of[T any](ref any) Col[T] {
	return Col[T]{ref: ref}
}

// Field builds a compile-time token for the Go field name of T.
func Field[T any](name string) Col[T] {
	return Col[T]{ref: token{name: name, owner: reflect.TypeOf((*T)(nil)).Elem()}}
}

type token struct {
	name  string
	owner reflect.Type
}

func (t token) SelectorDescriptor() Descriptor {
	return Descriptor{
		Property: Normalize(t.name),
		Accessor: t.name,
		Owner:    t.owner,
		Strategy: StrategyDescriptor,
	}
}
