package learner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

//////
// Const, vars, types.
//////

var (
	// ErrUnknownProperty indicates a property path that does not resolve.
	ErrUnknownProperty = errors.New("learner: unknown property")

	// ErrPropertyType indicates a value whose Go type does not match the
	// property kind.
	ErrPropertyType = errors.New("learner: value type does not match property kind")
)

// Kind is the declared type of a configurable property.
type Kind int

const (
	KindFloat64 Kind = iota
	KindFloat32
	KindInt
	KindInt64
	KindBool
	KindRune
	KindString
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	case KindRune:
		return "rune"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Property is a typed setter/getter bound to one field of a configurable
// object. Properties are built on demand by Configurable.Properties, so the
// closures always point at the fields of the object they were obtained from.
type Property struct {
	kind Kind
	set  func(any) error
	get  func() any
}

// Properties is the dispatch table of a Configurable: property name to setter.
type Properties map[string]Property

// Configurable is implemented by every object whose settings can be tuned by
// name.
type Configurable interface {
	// Properties returns the settable properties of the receiver.
	Properties() Properties
}

// Composite is a Configurable that owns nested Configurables, addressed by a
// path segment. A path such as "1.numComponents" first resolves the child
// named "1", then the property "numComponents" on that child.
type Composite interface {
	Configurable

	// Child returns the nested Configurable with the given name.
	Child(name string) (Configurable, bool)
}

//////
// Property constructors.
//////

func bind[T any](kind Kind, field *T) Property {
	return Property{
		kind: kind,
		set: func(v any) error {
			tv, ok := v.(T)
			if !ok {
				return fmt.Errorf("%w: %s property given %T", ErrPropertyType, kind, v)
			}

			*field = tv

			return nil
		},
		get: func() any { return *field },
	}
}

// Float64Property binds a float64 field.
func Float64Property(field *float64) Property { return bind(KindFloat64, field) }

// Float32Property binds a float32 field.
func Float32Property(field *float32) Property { return bind(KindFloat32, field) }

// IntProperty binds an int field.
func IntProperty(field *int) Property { return bind(KindInt, field) }

// Int64Property binds an int64 field.
func Int64Property(field *int64) Property { return bind(KindInt64, field) }

// BoolProperty binds a bool field.
func BoolProperty(field *bool) Property { return bind(KindBool, field) }

// RuneProperty binds a rune field.
func RuneProperty(field *rune) Property { return bind(KindRune, field) }

// StringProperty binds a string field.
func StringProperty(field *string) Property { return bind(KindString, field) }

//////
// Methods.
//////

// Kind returns the declared type of the property.
func (p Property) Kind() Kind { return p.kind }

// Set assigns v, whose dynamic type must match the property kind exactly.
func (p Property) Set(v any) error { return p.set(v) }

// Get returns the current value.
func (p Property) Get() any { return p.get() }

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

//////
// Exported functionalities.
//////

// Resolve walks a dot-separated property path starting at target and returns
// the property it designates. Each non-final segment must name a child of a
// Composite.
//
// Usage example:
//
//	prop, err := Resolve(multi, "0.numComponents")
//	if err != nil {
//	    return err
//	}
//	err = prop.Set(4)
func Resolve(target Configurable, path string) (Property, error) {
	if path == "" {
		return Property{}, fmt.Errorf("%w: empty path", ErrUnknownProperty)
	}

	current := target
	segments := strings.Split(path, ".")

	for i, segment := range segments {
		if i == len(segments)-1 {
			prop, ok := current.Properties()[segment]
			if !ok {
				return Property{}, fmt.Errorf("%w: %q on %T", ErrUnknownProperty, path, current)
			}

			return prop, nil
		}

		composite, ok := current.(Composite)
		if !ok {
			return Property{}, fmt.Errorf("%w: %q: %T has no children", ErrUnknownProperty, path, current)
		}

		child, ok := composite.Child(segment)
		if !ok {
			return Property{}, fmt.Errorf("%w: %q: no child %q on %T", ErrUnknownProperty, path, segment, current)
		}

		current = child
	}

	// Unreachable: strings.Split never returns an empty slice.
	return Property{}, fmt.Errorf("%w: %q", ErrUnknownProperty, path)
}
