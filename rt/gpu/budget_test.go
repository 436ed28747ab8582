package gpu

import (
	"testing"

	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/graph"
)

func TestBudgetManagerWarnsOncePerWatermarkCrossing(t *testing.T) {
	bus := eventbus.NewBus(nil)
	bm := NewBudgetManager(bus, nil)
	bm.RegisterHeap("device-local", 1000)

	var events []graph.BudgetExceeded
	bus.Subscribe(eventbus.TypeID[graph.BudgetExceeded](), func(m eventbus.Message) {
		events = append(events, m.Payload.(graph.BudgetExceeded))
	})

	frame := func(delta int64) {
		bus.PublishImmediate(eventbus.Message{Type: eventbus.TypeID[graph.FrameStart]()})
		bm.RecordAllocation("device-local", delta)
		bus.PublishImmediate(eventbus.Message{Type: eventbus.TypeID[graph.FrameEnd]()})
	}

	frame(850) // crosses 80% watermark (800)
	if len(events) != 1 {
		t.Fatalf("expected 1 warning on first crossing, got %d", len(events))
	}

	frame(0) // still above watermark, no new delta: must not warn again
	if len(events) != 1 {
		t.Fatalf("expected no additional warning while staying above watermark, got %d total", len(events))
	}

	frame(-700) // drop back under watermark
	frame(750)  // cross again: must warn once more
	if len(events) != 2 {
		t.Fatalf("expected a second warning after dropping below and re-crossing, got %d", len(events))
	}
}

func TestBudgetManagerIgnoresUnregisteredHeap(t *testing.T) {
	bus := eventbus.NewBus(nil)
	bm := NewBudgetManager(bus, nil)
	bm.RecordAllocation("unknown", 999999)
	if len(bm.Stats()) != 0 {
		t.Fatalf("expected no stats for an unregistered heap")
	}
}
