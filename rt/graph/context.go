package graph

import (
	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/rtlog"
)

// Context is handed to every lifecycle callback (Setup/Compile/Execute)
// so a node can subscribe to the bus, log, and request recompilation of
// itself or (indirectly, via cascade) its dependents.
type Context struct {
	Bus    *eventbus.Bus
	Logger rtlog.Logger

	graph *Graph
	self  Handle
}

// Subscribe registers fn against typeID under the node's own
// subscription list, so Cleanup can unsubscribe everything the node
// registered without the node having to track IDs itself.
func (c *Context) Subscribe(typeID eventbus.MessageID, fn func(eventbus.Message)) {
	id := c.Bus.Subscribe(typeID, fn)
	c.graph.trackSubscription(c.self, id)
}

// MarkDirty flags handle for recompilation by the next RenderFrame's
// recompileDirtyNodes pass. Nodes typically call this on themselves from
// inside an OnEvent/subscribed callback.
func (c *Context) MarkDirty(handle Handle) {
	c.graph.MarkDirty(handle)
}

// Self returns the handle of the node this context was created for.
func (c *Context) Self() Handle { return c.self }
