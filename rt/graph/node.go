package graph

import (
	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/slot"
)

// Handle stably identifies a node across its entire lifetime, including
// across cleanup/setup/compile recompilation cycles.
type Handle uint64

// LifecycleState tracks a node's position in Declared -> SetUp ->
// Compiled -> Executable -> Dirty -> Cleaned.
type LifecycleState int

const (
	Declared LifecycleState = iota
	SetUp
	Compiled
	Executable
	Dirty
	Cleaned
)

func (s LifecycleState) String() string {
	switch s {
	case Declared:
		return "Declared"
	case SetUp:
		return "SetUp"
	case Compiled:
		return "Compiled"
	case Executable:
		return "Executable"
	case Dirty:
		return "Dirty"
	case Cleaned:
		return "Cleaned"
	default:
		return "Unknown"
	}
}

// Capability interfaces a concrete node implements the subset of,
// mirroring the multi-inheritance listener+node split in the original
// design (trait composition instead of an inheritance hierarchy).
type (
	// Setupable wires static state and event subscriptions.
	Setupable interface {
		Setup(ctx *Context) error
	}
	// CompilableNode creates GPU objects; paired with a Cleanable
	// registering teardown.
	CompilableNode interface {
		Compile(ctx *Context) error
	}
	// ExecutableNode records commands for a frame.
	ExecutableNode interface {
		Execute(ctx *Context, frame uint64) error
	}
	// Cleanable releases owned resources acquired in Compile.
	Cleanable interface {
		Cleanup()
	}
	// EventListener reacts to bus messages; OnEvent may call
	// ctx.MarkDirty(self) to request recompilation.
	EventListener interface {
		OnEvent(ctx *Context, msg interface{ TypeName() string }) bool
	}
)

// Impl is the minimal contract every node instance must satisfy.
type Impl interface {
	TypeName() string
}

type inputEdge struct {
	producer   Handle
	outputSlot int
}

type node struct {
	handle   Handle
	typeName string
	instance string
	impl     Impl

	inputSlots  map[int]*slot.Slot
	outputSlots map[int]*slot.Slot
	inEdges     map[int]inputEdge
	outEdges    []Handle // consumers, for cascade invalidation

	state        LifecycleState
	broken       bool
	brokenReason error
	dirty        bool
	regOrder     int

	subs []eventbus.SubscriptionID
}
