package graph

// Event payloads published on the graph's bus. Each satisfies the
// TypeName() contract EventListener.OnEvent dispatches on, and gets its
// MessageID from eventbus.TypeID, which assigns one on first use.

// FrameStart is published at the beginning of RenderFrame, before
// events are drained and dirty nodes are recompiled.
type FrameStart struct{ Frame uint64 }

func (FrameStart) TypeName() string { return "FrameStart" }

// FrameEnd is published after a frame's nodes have executed.
type FrameEnd struct{ Frame uint64 }

func (FrameEnd) TypeName() string { return "FrameEnd" }

// WindowResize is the seed event of the canonical cascade in spec §4.5:
// WindowResize -> SwapChainInvalidated -> FramebufferDirty -> (geometry
// nodes mark themselves dirty).
type WindowResize struct{ Width, Height uint32 }

func (WindowResize) TypeName() string { return "WindowResize" }

// SwapChainInvalidated is emitted by a swapchain node reacting to
// WindowResize.
type SwapChainInvalidated struct{ Width, Height uint32 }

func (SwapChainInvalidated) TypeName() string { return "SwapChainInvalidated" }

// FramebufferDirty is emitted by a framebuffer node reacting to
// SwapChainInvalidated.
type FramebufferDirty struct{ Width, Height uint32 }

func (FramebufferDirty) TypeName() string { return "FramebufferDirty" }

// CompilationFailed is emitted when a node's Compile call returns an
// error; the node enters the broken state.
type CompilationFailed struct {
	Node string
	Err  error
}

func (CompilationFailed) TypeName() string { return "CompilationFailed" }

// BudgetExceeded is an informational event (never fatal) published by
// the upload/allocation infrastructure when a device-memory watermark is
// crossed.
type BudgetExceeded struct {
	Heap       string
	UsedBytes  uint64
	BudgetBytes uint64
}

func (BudgetExceeded) TypeName() string { return "BudgetExceeded" }
