package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog collects events in memory. Memory repos append to it where the
// PG repos would insert inside their transaction, which lets service tests
// assert that guarded actions were audited.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLog constructs an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append records an event, filling in ID and CreatedAt when missing.
func (l *MemoryLog) Append(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of all recorded events in append order.
func (l *MemoryLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// CountByAction returns how many events carry the given action.
func (l *MemoryLog) CountByAction(action string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Action == action {
			n++
		}
	}
	return n
}
