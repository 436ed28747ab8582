// Package graph implements the RenderGraph core: node registry,
// dependency topology, lifecycle execution, dirty-set recompilation
// driven by the event bus, and a LIFO cleanup stack unwound in strict
// reverse of construction order. Grounded on the teacher's frame-driver
// shape in app/app.go (Init -> per-frame Render -> teardown), rebuilt
// here as an explicit node graph instead of one monolithic struct.
package graph

import (
	"fmt"
	"sort"

	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/rtlog"
	"github.com/gekko3d/esvo/rt/slot"
)

type cleanupEntry struct {
	handle Handle
	fn     func()
}

// Graph owns every node, the edges between their slots, and drives the
// Setup/Compile/Execute/Cleanup lifecycle across frames.
type Graph struct {
	bus    *eventbus.Bus
	logger rtlog.Logger

	nodes      map[Handle]*node
	regOrder   []Handle // registration order, for deterministic tie-breaking
	nextHandle Handle

	execOrder []Handle // topological order, computed by Compile
	compiled  bool

	cleanupStack []cleanupEntry
	frame        uint64
}

func New(bus *eventbus.Bus, logger rtlog.Logger) *Graph {
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}
	return &Graph{
		bus:    bus,
		logger: logger,
		nodes:  make(map[Handle]*node),
	}
}

// AddNode instantiates impl under the graph, wires it a Context carrying
// the graph's event bus, and calls Setup if impl implements Setupable.
func (g *Graph) AddNode(typeName, instanceName string, impl Impl, inputs, outputs map[int]*slot.Slot) (Handle, error) {
	g.nextHandle++
	h := g.nextHandle
	n := &node{
		handle:      h,
		typeName:    typeName,
		instance:    instanceName,
		impl:        impl,
		inputSlots:  inputs,
		outputSlots: outputs,
		inEdges:     make(map[int]inputEdge),
		state:       Declared,
		regOrder:    len(g.regOrder),
	}
	g.nodes[h] = n
	g.regOrder = append(g.regOrder, h)

	if s, ok := impl.(Setupable); ok {
		if err := s.Setup(g.contextFor(h)); err != nil {
			return h, fmt.Errorf("graph: node %q Setup failed: %w", instanceName, err)
		}
	}
	n.state = SetUp
	return h, nil
}

func (g *Graph) contextFor(h Handle) *Context {
	return &Context{Bus: g.bus, Logger: g.logger, graph: g, self: h}
}

func (g *Graph) trackSubscription(h Handle, id eventbus.SubscriptionID) {
	if n, ok := g.nodes[h]; ok {
		n.subs = append(n.subs, id)
	}
}

// Connect wires producer's output slot outIdx to consumer's input slot
// inIdx, validating slot-type compatibility via the slot package's kind
// check and recording the edge for both topological ordering and
// cascade invalidation.
func (g *Graph) Connect(producer Handle, outIdx int, consumer Handle, inIdx int) error {
	p, ok := g.nodes[producer]
	if !ok {
		return &ErrUnknownHandle{Handle: producer}
	}
	c, ok := g.nodes[consumer]
	if !ok {
		return &ErrUnknownHandle{Handle: consumer}
	}
	outSlot, ok := p.outputSlots[outIdx]
	if !ok {
		return &InvalidSlotConnectionError{Producer: p.instance, Consumer: c.instance, Reason: fmt.Sprintf("producer has no output slot %d", outIdx)}
	}
	inSlot, ok := c.inputSlots[inIdx]
	if !ok {
		return &InvalidSlotConnectionError{Producer: p.instance, Consumer: c.instance, Reason: fmt.Sprintf("consumer has no input slot %d", inIdx)}
	}
	if outSlot.Kind() != inSlot.Kind() {
		return &InvalidSlotConnectionError{Producer: p.instance, Consumer: c.instance, Reason: fmt.Sprintf("type mismatch: %s -> %s", outSlot.Kind(), inSlot.Kind())}
	}
	if inSlot.Mutability == slot.Read && outSlot.Role != slot.Output {
		return &InvalidSlotConnectionError{Producer: p.instance, Consumer: c.instance, Reason: "producer slot does not declare Output role"}
	}
	c.inEdges[inIdx] = inputEdge{producer: producer, outputSlot: outIdx}
	p.outEdges = append(p.outEdges, consumer)
	return nil
}

// Compile topologically orders the nodes (Kahn's algorithm, ties broken
// by registration order so the emitted order is stable across runs given
// an identical graph definition), verifies every Required input is
// connected, and calls Compile on each node in order, registering a
// Cleanup entry for each.
func (g *Graph) Compile() error {
	order, err := g.topoOrder()
	if err != nil {
		return err
	}
	for _, idx := range order {
		n := idx
		if err := g.checkRequiredInputs(n); err != nil {
			return err
		}
	}
	g.execOrder = order
	for _, h := range order {
		g.compileNode(h)
	}
	g.compiled = true
	return nil
}

func (g *Graph) checkRequiredInputs(h Handle) error {
	n := g.nodes[h]
	for idx, s := range n.inputSlots {
		if s.Nullability != slot.Required {
			continue
		}
		if _, connected := n.inEdges[idx]; !connected {
			return &InvalidSlotConnectionError{Consumer: n.instance, Reason: (&slot.ErrRequiredUnconnected{SlotIndex: idx}).Error()}
		}
	}
	return nil
}

// topoOrder performs a standard Kahn-style sort over the inEdges
// dependency relation, breaking ties by registration order so the
// emitted order is deterministic and stable across runs.
func (g *Graph) topoOrder() ([]Handle, error) {
	indegree := make(map[Handle]int, len(g.nodes))
	for h, n := range g.nodes {
		indegree[h] = len(n.inEdges)
	}

	var ready []Handle
	for h, d := range indegree {
		if d == 0 {
			ready = append(ready, h)
		}
	}
	sortByRegOrder := func(hs []Handle) {
		sort.Slice(hs, func(i, j int) bool { return g.nodes[hs[i]].regOrder < g.nodes[hs[j]].regOrder })
	}
	sortByRegOrder(ready)

	var order []Handle
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)

		var newlyReady []Handle
		for other, n := range g.nodes {
			for _, e := range n.inEdges {
				if e.producer == h {
					indegree[other]--
				}
			}
			if indegree[other] == 0 && !containsHandle(order, other) && !containsHandle(ready, other) && !containsHandle(newlyReady, other) {
				newlyReady = append(newlyReady, other)
			}
		}
		sortByRegOrder(newlyReady)
		ready = append(ready, newlyReady...)
		sortByRegOrder(ready)
	}

	if len(order) != len(g.nodes) {
		var remaining []string
		for h := range g.nodes {
			if !containsHandle(order, h) {
				remaining = append(remaining, g.nodes[h].instance)
			}
		}
		return nil, &ErrCyclicGraph{Remaining: remaining}
	}
	return order, nil
}

func containsHandle(hs []Handle, h Handle) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

func (g *Graph) compileNode(h Handle) {
	n := g.nodes[h]
	if g.isBroken(h) {
		return
	}
	if c, ok := n.impl.(CompilableNode); ok {
		if err := c.Compile(g.contextFor(h)); err != nil {
			g.markBroken(h, err)
			return
		}
	}
	if cl, ok := n.impl.(Cleanable); ok {
		g.cleanupStack = append(g.cleanupStack, cleanupEntry{handle: h, fn: cl.Cleanup})
	}
	n.state = Executable
}

func (g *Graph) markBroken(h Handle, err error) {
	n := g.nodes[h]
	n.broken = true
	n.brokenReason = err
	n.state = Dirty
	g.logger.Errorf("graph: node %q broken: %v", n.instance, err)
	g.bus.PublishImmediate(eventbus.Message{
		Type:    eventbus.TypeID[CompilationFailed](),
		Payload: CompilationFailed{Node: n.instance, Err: err},
	})
	for _, consumer := range n.outEdges {
		g.propagateBroken(consumer, n.instance)
	}
}

// propagateBroken marks consumer broken only if it holds a Required
// input connected from the originally-broken producer (transitively);
// Optional inputs from a broken producer do not break the consumer.
func (g *Graph) propagateBroken(h Handle, fromInstance string) {
	n := g.nodes[h]
	if n.broken {
		return
	}
	requiresFromBroken := false
	for idx, e := range n.inEdges {
		if g.nodes[e.producer].broken {
			if s := n.inputSlots[idx]; s != nil && s.Nullability == slot.Required {
				requiresFromBroken = true
				break
			}
		}
	}
	if !requiresFromBroken {
		return
	}
	n.broken = true
	n.brokenReason = fmt.Errorf("graph: upstream of %q is broken (originated at %q)", n.instance, fromInstance)
	for _, consumer := range n.outEdges {
		g.propagateBroken(consumer, fromInstance)
	}
}

func (g *Graph) isBroken(h Handle) bool {
	n, ok := g.nodes[h]
	return ok && n.broken
}

// MarkDirty flags h for recompilation by the next RenderFrame's
// recompileDirtyNodes pass. Unknown handles are ignored.
func (g *Graph) MarkDirty(h Handle) {
	if n, ok := g.nodes[h]; ok {
		n.dirty = true
	}
}

// RenderFrame drives one frame: FrameStart -> drain events -> recompile
// dirty nodes (cascade already folded in by the event handlers that
// called MarkDirty) -> execute in topological order -> FrameEnd -> drain
// events -> advance the frame counter.
func (g *Graph) RenderFrame(frame uint64) error {
	g.bus.Publish(eventbus.Message{Type: eventbus.TypeID[FrameStart](), Payload: FrameStart{Frame: frame}})
	g.bus.ProcessMessages()

	g.recompileDirtyNodes()

	for _, h := range g.execOrder {
		n := g.nodes[h]
		if n.broken {
			continue
		}
		if e, ok := n.impl.(ExecutableNode); ok {
			if err := e.Execute(g.contextFor(h), frame); err != nil {
				g.logger.Errorf("graph: node %q Execute failed: %v", n.instance, err)
			}
		}
	}

	g.bus.Publish(eventbus.Message{Type: eventbus.TypeID[FrameEnd](), Payload: FrameEnd{Frame: frame}})
	g.bus.ProcessMessages()
	g.frame = frame
	return nil
}

// recompileDirtyNodes first computes the cascade fixpoint (a dirty
// node's downstream dependents are dirty too, transitively), then for
// each dirty node in execution order runs cleanup -> setup -> compile ->
// re-register cleanup, clearing the broken flag so a rebuilt shader or
// resized swapchain gets a fresh chance.
func (g *Graph) recompileDirtyNodes() {
	g.cascadeDirty()

	for _, h := range g.execOrder {
		n := g.nodes[h]
		if !n.dirty {
			continue
		}
		g.cleanupNode(h)
		n.broken = false
		n.brokenReason = nil
		if s, ok := n.impl.(Setupable); ok {
			if err := s.Setup(g.contextFor(h)); err != nil {
				g.markBroken(h, err)
				n.dirty = false
				continue
			}
		}
		n.state = SetUp
		g.compileNode(h)
		n.dirty = false
	}
}

func (g *Graph) cascadeDirty() {
	changed := true
	for changed {
		changed = false
		for _, h := range g.regOrder {
			n := g.nodes[h]
			if !n.dirty {
				continue
			}
			for _, consumer := range n.outEdges {
				if c := g.nodes[consumer]; !c.dirty {
					c.dirty = true
					changed = true
				}
			}
		}
	}
}

// cleanupNode unsubscribes every event-bus subscription the node
// registered and, if it has a pending cleanup entry on the stack,
// removes and invokes it. The cleanup stack is otherwise append-only
// during Compile, so a mid-stack removal here only happens during
// targeted recompilation of a single node, not full Shutdown.
func (g *Graph) cleanupNode(h Handle) {
	n := g.nodes[h]
	for _, sub := range n.subs {
		g.bus.Unsubscribe(sub)
	}
	n.subs = nil

	for i := len(g.cleanupStack) - 1; i >= 0; i-- {
		if g.cleanupStack[i].handle == h {
			g.cleanupStack[i].fn()
			g.cleanupStack = append(g.cleanupStack[:i], g.cleanupStack[i+1:]...)
			break
		}
	}
	n.state = Cleaned
}

// CleanupDepth returns the number of pending cleanup entries, which must
// equal the number of currently-compiled nodes (testable property 7).
func (g *Graph) CleanupDepth() int { return len(g.cleanupStack) }

// NodeState reports a node's current lifecycle state, for tests.
func (g *Graph) NodeState(h Handle) (LifecycleState, bool) {
	n, ok := g.nodes[h]
	if !ok {
		return 0, false
	}
	return n.state, true
}

// IsBroken reports whether h is currently marked broken.
func (g *Graph) IsBroken(h Handle) bool { return g.isBroken(h) }

// Shutdown drains any pending events, then unwinds the cleanup stack in
// strict reverse of construction order.
func (g *Graph) Shutdown() {
	g.bus.ProcessMessages()
	for i := len(g.cleanupStack) - 1; i >= 0; i-- {
		g.cleanupStack[i].fn()
	}
	g.cleanupStack = nil
}
