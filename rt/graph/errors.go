package graph

import "fmt"

// InvalidSlotConnectionError covers incompatible slot types, an
// unconnected Required input discovered at compile, or a mutability
// violation on connect.
type InvalidSlotConnectionError struct {
	Producer string
	Consumer string
	Reason   string
}

func (e *InvalidSlotConnectionError) Error() string {
	return fmt.Sprintf("graph: invalid connection %s -> %s: %s", e.Producer, e.Consumer, e.Reason)
}

// CompilationFailedError describes a node's Compile failure. Graph.Compile
// does not return it: a node whose Compile fails is marked broken and the
// CompilationFailed event carries the original error.
type CompilationFailedError struct {
	Node string
	Err  error
}

func (e *CompilationFailedError) Error() string {
	return fmt.Sprintf("graph: node %q failed to compile: %v", e.Node, e.Err)
}

func (e *CompilationFailedError) Unwrap() error { return e.Err }

// ErrUnknownHandle is returned by Connect when a handle is not
// registered with the graph (MarkDirty ignores unknown handles).
type ErrUnknownHandle struct {
	Handle Handle
}

func (e *ErrUnknownHandle) Error() string {
	return fmt.Sprintf("graph: unknown node handle %d", e.Handle)
}

// ErrCyclicGraph is returned by Compile when Kahn's algorithm cannot
// fully drain the node set.
type ErrCyclicGraph struct {
	Remaining []string
}

func (e *ErrCyclicGraph) Error() string {
	return fmt.Sprintf("graph: cycle detected among nodes %v", e.Remaining)
}
