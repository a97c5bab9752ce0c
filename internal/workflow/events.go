package workflow

import (
	"sync"
	"time"

	"vaultcast/internal/jobs"
)

// EventType classifies an observer event.
type EventType string

const (
	EventState    EventType = "state"
	EventProgress EventType = "progress"
	EventReady    EventType = "ready"
)

const defaultEventCapacity = 500

// Event is one observable change to a job.
type Event struct {
	Seq             int64      `json:"seq"`
	Timestamp       time.Time  `json:"timestamp"`
	Type            EventType  `json:"type"`
	NotebookID      string     `json:"notebookId"`
	JobID           string     `json:"jobId"`
	State           jobs.State `json:"state"`
	Progress        float64    `json:"progress"`
	CompletedChunks int        `json:"completedChunks"`
	TotalChunks     int        `json:"totalChunks"`
}

// EventBus is a bounded in-memory event log with monotonically increasing
// sequence numbers. Old events are dropped once the capacity is reached.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bus that retains at most maxEvents events.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = defaultEventCapacity
	}
	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns its sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	// Observers never see the internal failed state.
	event.State = event.State.Visible()

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return event
}

// Since returns retained events with a sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// LastSeq returns the sequence of the newest event, or 0 when none was published.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
