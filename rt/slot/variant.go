package slot

import "reflect"

// Variant is a pass-through handle whose concrete type is only decidable
// at runtime among the registered set. Holds/Get are its only
// operations; a type mismatch at Get never panics.
type Variant struct {
	kind  reflect.Type
	value any
}

// NewVariant wraps v, which must be a registered handle kind.
func NewVariant(v any) (Variant, error) {
	t := reflect.TypeOf(v)
	if t == nil || !IsRegistered(t) {
		return Variant{}, &ErrUnknownType{Type: t}
	}
	return Variant{kind: t, value: v}, nil
}

// Holds reports whether the variant currently carries a T.
func Holds[T any](v Variant) bool {
	return v.kind == reflect.TypeFor[T]()
}

// Get returns the held value as T, or the zero value and false if the
// variant holds a different concrete type. A mismatch is reported to the
// caller, never a crash.
func Get[T any](v Variant) (T, bool) {
	var zero T
	if v.kind != reflect.TypeFor[T]() {
		return zero, false
	}
	val, ok := v.value.(T)
	if !ok {
		return zero, false
	}
	return val, true
}

// SubsetVariant restricts a Variant to a named closed set of alternative
// types, acceptable iff every alternative in alternatives is registered.
type SubsetVariant struct {
	Variant
	alternatives []reflect.Type
}

// NewSubsetVariant builds a subset variant; it fails if v's concrete
// type, or any listed alternative, is unregistered.
func NewSubsetVariant(v any, alternatives []reflect.Type) (SubsetVariant, error) {
	for _, alt := range alternatives {
		if !IsRegistered(alt) {
			return SubsetVariant{}, &ErrUnknownType{Type: alt}
		}
	}
	base, err := NewVariant(v)
	if err != nil {
		return SubsetVariant{}, err
	}
	found := false
	for _, alt := range alternatives {
		if alt == base.kind {
			found = true
			break
		}
	}
	if !found {
		return SubsetVariant{}, &ErrUnknownType{Type: base.kind}
	}
	return SubsetVariant{Variant: base, alternatives: alternatives}, nil
}
