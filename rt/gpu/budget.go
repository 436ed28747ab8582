package gpu

import (
	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/graph"
	"github.com/gekko3d/esvo/rt/rtlog"
)

// HeapStats accumulates one frame's allocation deltas for a single
// device heap (e.g. "device-local", "host-visible"), matching the
// headroom-bucket accounting style of the teacher's HeadroomPayload /
// HeadroomTables constants in gpu/manager.go, generalized into a
// per-heap running total instead of two fixed buffers.
type HeapStats struct {
	Name         string
	BudgetBytes  uint64
	UsedBytes    uint64
	DeltaBytes   int64 // signed delta since the last FrameStart
	warnedThisWatermark bool
}

// BudgetManager subscribes to FrameStart/FrameEnd and samples per-heap
// allocation deltas between them, raising a single BudgetExceeded
// warning event per 80%-of-budget watermark crossing, checked at
// FrameEnd; the warning re-arms once a later FrameEnd finds usage back
// below the watermark.
type BudgetManager struct {
	bus    *eventbus.Bus
	logger rtlog.Logger
	heaps  map[string]*HeapStats
}

func NewBudgetManager(bus *eventbus.Bus, logger rtlog.Logger) *BudgetManager {
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}
	bm := &BudgetManager{bus: bus, logger: logger, heaps: make(map[string]*HeapStats)}
	bus.Subscribe(eventbus.TypeID[graph.FrameStart](), bm.onFrameStart)
	bus.Subscribe(eventbus.TypeID[graph.FrameEnd](), bm.onFrameEnd)
	return bm
}

// RegisterHeap declares a heap's budget; call once per heap before the
// first frame.
func (bm *BudgetManager) RegisterHeap(name string, budgetBytes uint64) {
	bm.heaps[name] = &HeapStats{Name: name, BudgetBytes: budgetBytes}
}

// RecordAllocation accumulates a signed allocation delta for heap
// (positive for an allocation, negative for a free) between FrameStart
// and FrameEnd.
func (bm *BudgetManager) RecordAllocation(heap string, deltaBytes int64) {
	h, ok := bm.heaps[heap]
	if !ok {
		return
	}
	h.DeltaBytes += deltaBytes
	if deltaBytes > 0 {
		h.UsedBytes += uint64(deltaBytes)
	} else if uint64(-deltaBytes) <= h.UsedBytes {
		h.UsedBytes -= uint64(-deltaBytes)
	} else {
		h.UsedBytes = 0
	}
}

func (bm *BudgetManager) onFrameStart(eventbus.Message) {
	for _, h := range bm.heaps {
		h.DeltaBytes = 0
	}
}

func (bm *BudgetManager) onFrameEnd(eventbus.Message) {
	for _, h := range bm.heaps {
		if h.BudgetBytes == 0 {
			continue
		}
		watermark := (h.BudgetBytes * 8) / 10
		if h.UsedBytes >= watermark {
			if !h.warnedThisWatermark {
				h.warnedThisWatermark = true
				bm.logger.Warnf("gpu: heap %q at %d/%d bytes (>=80%% of budget)", h.Name, h.UsedBytes, h.BudgetBytes)
				bm.bus.PublishImmediate(eventbus.Message{
					Type: eventbus.TypeID[graph.BudgetExceeded](),
					Payload: graph.BudgetExceeded{
						Heap:        h.Name,
						UsedBytes:   h.UsedBytes,
						BudgetBytes: h.BudgetBytes,
					},
				})
			}
		} else {
			h.warnedThisWatermark = false
		}
	}
}

// Stats returns a snapshot of every registered heap's current usage.
func (bm *BudgetManager) Stats() map[string]HeapStats {
	out := make(map[string]HeapStats, len(bm.heaps))
	for k, v := range bm.heaps {
		out[k] = *v
	}
	return out
}
