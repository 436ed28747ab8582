package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/slot"
)

// recordingNode logs every lifecycle call it receives, in order, into a
// shared trace slice so tests can assert call ordering across a chain of
// nodes.
type recordingNode struct {
	name  string
	trace *[]string

	subscribeTo eventbus.MessageID
	onEvent     func(ctx *Context)

	failCompile bool
}

func (n *recordingNode) TypeName() string { return "recording" }

func (n *recordingNode) Setup(ctx *Context) error {
	*n.trace = append(*n.trace, n.name+":setup")
	if n.onEvent != nil {
		ctx.Subscribe(n.subscribeTo, func(eventbus.Message) { n.onEvent(ctx) })
	}
	return nil
}

func (n *recordingNode) Compile(ctx *Context) error {
	*n.trace = append(*n.trace, n.name+":compile")
	if n.failCompile {
		return assert.AnError
	}
	return nil
}

func (n *recordingNode) Cleanup() {
	*n.trace = append(*n.trace, n.name+":cleanup")
}

func newGraph() (*Graph, *eventbus.Bus) {
	bus := eventbus.NewBus(nil)
	return New(bus, nil), bus
}

// TestCascadeInvalidation is scenario S6: a 3-node chain A->B->C, all
// clean; an event to which A subscribes marks A dirty, which cascades to
// B and C; after RenderFrame all three have gone through
// cleanup;setup;compile exactly once, in order A, B, C.
func TestCascadeInvalidation(t *testing.T) {
	g, bus := newGraph()
	var trace []string

	type Kick struct{}
	kickID := eventbus.TypeID[Kick]()

	var aHandle Handle
	a := &recordingNode{name: "A", trace: &trace, subscribeTo: kickID}
	a.onEvent = func(ctx *Context) { ctx.MarkDirty(aHandle) }
	b := &recordingNode{name: "B", trace: &trace}
	c := &recordingNode{name: "C", trace: &trace}

	// Connect needs a declared output on the producer and a declared
	// input on the consumer, so the chain is wired through BufferHandle
	// slots.
	declare := func(role slot.Role, mut slot.Mutability) map[int]*slot.Slot {
		s, err := slot.Declare[slot.BufferHandle](0, slot.Required, role, mut, slot.NodeLevel)
		require.NoError(t, err)
		return map[int]*slot.Slot{0: s}
	}

	var err error
	aHandle, err = g.AddNode("recording", "A", a, nil, declare(slot.Output, slot.Write))
	require.NoError(t, err)
	bHandle, err := g.AddNode("recording", "B", b, declare(slot.Dependency, slot.Read), declare(slot.Output, slot.Write))
	require.NoError(t, err)
	cHandle, err := g.AddNode("recording", "C", c, declare(slot.Dependency, slot.Read), nil)
	require.NoError(t, err)

	require.NoError(t, g.Connect(aHandle, 0, bHandle, 0))
	require.NoError(t, g.Connect(bHandle, 0, cHandle, 0))
	require.NoError(t, g.Compile())

	trace = nil // reset after initial Setup/Compile bookkeeping above
	bus.Publish(eventbus.Message{Type: kickID})

	require.NoError(t, g.RenderFrame(1))

	assert.Equal(t, []string{
		"A:cleanup", "A:setup", "A:compile",
		"B:cleanup", "B:setup", "B:compile",
		"C:cleanup", "C:setup", "C:compile",
	}, trace)
}

func TestCleanupStackDepthMatchesCompiledNodes(t *testing.T) {
	g, _ := newGraph()
	var trace []string
	a := &recordingNode{name: "A", trace: &trace}
	b := &recordingNode{name: "B", trace: &trace}
	_, err := g.AddNode("recording", "A", a, nil, nil)
	require.NoError(t, err)
	_, err = g.AddNode("recording", "B", b, nil, nil)
	require.NoError(t, err)
	require.NoError(t, g.Compile())

	assert.Equal(t, 2, g.CleanupDepth())
	require.NoError(t, g.RenderFrame(1))
	assert.Equal(t, 2, g.CleanupDepth())
}

func TestTopoOrderStableAcrossRuns(t *testing.T) {
	build := func() []string {
		g, _ := newGraph()
		var trace []string
		a := &recordingNode{name: "A", trace: &trace}
		b := &recordingNode{name: "B", trace: &trace}
		c := &recordingNode{name: "C", trace: &trace}
		ah, _ := g.AddNode("recording", "A", a, nil, nil)
		bh, _ := g.AddNode("recording", "B", b, nil, nil)
		ch, _ := g.AddNode("recording", "C", c, nil, nil)
		_ = g.Connect(ah, 0, ch, 0)
		_ = g.Connect(bh, 0, ch, 1)
		trace = nil
		require.NoError(t, g.Compile())
		return append([]string(nil), trace...)
	}
	first := build()
	second := build()
	assert.Equal(t, first, second)
}

func TestCompileFailurePropagatesBrokenDownstream(t *testing.T) {
	g, _ := newGraph()
	var trace []string
	bad := &recordingNode{name: "Bad", trace: &trace, failCompile: true}
	downstream := &recordingNode{name: "Down", trace: &trace}

	outSlot, err := slot.Declare[slot.BufferHandle](0, slot.Required, slot.Output, slot.Write, slot.NodeLevel)
	require.NoError(t, err)
	inSlot, err := slot.Declare[slot.BufferHandle](0, slot.Required, slot.Dependency, slot.Read, slot.NodeLevel)
	require.NoError(t, err)

	badHandle, err := g.AddNode("recording", "Bad", bad, nil, map[int]*slot.Slot{0: outSlot})
	require.NoError(t, err)
	downHandle, err := g.AddNode("recording", "Down", downstream, map[int]*slot.Slot{0: inSlot}, nil)
	require.NoError(t, err)
	require.NoError(t, g.Connect(badHandle, 0, downHandle, 0))

	require.NoError(t, g.Compile())

	assert.True(t, g.IsBroken(badHandle))
	assert.True(t, g.IsBroken(downHandle))
}

func TestShutdownUnwindsCleanupInReverse(t *testing.T) {
	g, _ := newGraph()
	var trace []string
	a := &recordingNode{name: "A", trace: &trace}
	b := &recordingNode{name: "B", trace: &trace}
	_, err := g.AddNode("recording", "A", a, nil, nil)
	require.NoError(t, err)
	_, err = g.AddNode("recording", "B", b, nil, nil)
	require.NoError(t, err)
	require.NoError(t, g.Compile())

	trace = nil
	g.Shutdown()
	assert.Equal(t, []string{"B:cleanup", "A:cleanup"}, trace)
	assert.Equal(t, 0, g.CleanupDepth())
}
