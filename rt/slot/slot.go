package slot

import (
	"fmt"
	"reflect"
)

type Nullability int

const (
	Required Nullability = iota
	Optional
)

type Role int

const (
	Output Role = iota
	Dependency
	ExecuteOnly
	CleanupOnly
)

type Mutability int

const (
	Read Mutability = iota
	Write
	ReadWrite
)

type Scope int

const (
	NodeLevel Scope = iota
	TaskLevel
	InstanceLevel
)

// StorageTag normalizes a slot's reference/pointer qualification; the
// storage cell carries only a discriminator plus the raw handle, with
// type correctness re-established by the slot's compile-time-declared
// kind on access.
type StorageTag int

const (
	Value StorageTag = iota
	Ref
	ConstRef
	Ptr
	ConstPtr
)

// ErrMutabilityViolation is returned when Get is called on a Write-only
// slot, or Set on a Read-only slot.
type ErrMutabilityViolation struct {
	SlotIndex int
	Op        string
}

func (e *ErrMutabilityViolation) Error() string {
	return fmt.Sprintf("slot %d: %s not permitted by declared mutability", e.SlotIndex, e.Op)
}

// ErrRequiredUnconnected is returned by graph compile when a Required
// input slot has no connected producer.
type ErrRequiredUnconnected struct {
	SlotIndex int
}

func (e *ErrRequiredUnconnected) Error() string {
	return fmt.Sprintf("slot %d: required input not connected", e.SlotIndex)
}

// Slot is a statically declared node I/O slot: (T, index, nullability,
// role, mutability, scope). T is represented at runtime by kind, checked
// once against the registry at Declare time.
type Slot struct {
	Index       int
	Nullability Nullability
	Role        Role
	Mutability  Mutability
	Scope       Scope
	Storage     StorageTag
	kind        reflect.Type

	value     Variant
	connected bool
}

// Declare registers a new input or output slot. A Read slot may not
// declare Output role; the kind must already be present in the handle
// registry (built-ins, application types, or a container form of
// either).
func Declare[T any](index int, nullability Nullability, role Role, mutability Mutability, scope Scope) (*Slot, error) {
	kind := reflect.TypeFor[T]()
	if !IsRegistered(kind) {
		return nil, &ErrUnknownType{Type: kind}
	}
	if mutability == Read && role == Output {
		return nil, fmt.Errorf("slot %d: a Read slot may not declare Output role", index)
	}
	return &Slot{
		Index:       index,
		Nullability: nullability,
		Role:        role,
		Mutability:  mutability,
		Scope:       scope,
		kind:        kind,
	}, nil
}

func (s *Slot) Kind() reflect.Type { return s.kind }
func (s *Slot) Connected() bool    { return s.connected }

// Get reads the slot's current value. Write-only slots reject Get.
func (s *Slot) Get() (Variant, error) {
	if s.Mutability == Write {
		return Variant{}, &ErrMutabilityViolation{SlotIndex: s.Index, Op: "Get"}
	}
	return s.value, nil
}

// Set writes the slot's value. Read-only slots reject Set; the value's
// concrete kind must match the slot's declared kind.
func (s *Slot) Set(v Variant) error {
	if s.Mutability == Read {
		return &ErrMutabilityViolation{SlotIndex: s.Index, Op: "Set"}
	}
	if v.kind != s.kind {
		return fmt.Errorf("slot %d: type mismatch, expected %s got %s", s.Index, s.kind, v.kind)
	}
	s.value = v
	s.connected = true
	return nil
}

// Descriptor is the runtime-queryable view of a slot, produced by
// MakeDescriptor for consumers that only need the shape, not access.
type Descriptor struct {
	Name        string
	Lifetime    Scope
	Kind        reflect.Type
	Nullability Nullability
}

// MakeDescriptor emits a runtime descriptor whose kind is the slot's
// type and whose nullability matches the slot.
func MakeDescriptor(s *Slot, name string, lifetime Scope) Descriptor {
	return Descriptor{Name: name, Lifetime: lifetime, Kind: s.kind, Nullability: s.Nullability}
}

// ValidationEntry records one runtime-path type mismatch against a
// Variant slot; these accumulate in a bundle's validation log instead of
// panicking.
type ValidationEntry struct {
	SlotIndex int
	Message   string
}

// ValidationLog accumulates ValidationEntry records produced by the
// runtime-variant access path.
type ValidationLog struct {
	Entries []ValidationEntry
}

func (l *ValidationLog) Record(slotIndex int, message string) {
	l.Entries = append(l.Entries, ValidationEntry{SlotIndex: slotIndex, Message: message})
}

func (l *ValidationLog) HasErrors() bool { return len(l.Entries) > 0 }
