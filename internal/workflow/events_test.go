package workflow

import (
	"testing"

	"vaultcast/internal/jobs"
)

func TestEventBusSequencesAndTrims(t *testing.T) {
	bus := NewEventBus(3)
	for i := range 5 {
		bus.Publish(Event{Type: EventProgress, Progress: float64(i) / 10})
	}
	events := bus.Since(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(events))
	}
	if events[0].Seq != 3 || events[2].Seq != 5 || bus.LastSeq() != 5 {
		t.Fatalf("unexpected sequences %d..%d (last %d)", events[0].Seq, events[2].Seq, bus.LastSeq())
	}
	if got := bus.Since(4); len(got) != 1 || got[0].Seq != 5 {
		t.Fatalf("Since(4) = %+v", got)
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected a timestamp")
	}
}

func TestEventBusHidesFailedState(t *testing.T) {
	bus := NewEventBus(0)
	event := bus.Publish(Event{Type: EventState, State: jobs.StateFailed})
	if event.State != jobs.StateOptimizing {
		t.Fatalf("published state %q", event.State)
	}
}
