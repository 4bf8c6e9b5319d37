package zone

import "github.com/shardworld/server/internal/world"

// Event is one entry in a zone's event log.
type Event struct {
	Tick   int64
	Kind   string
	Actor  world.EntityID
	Target world.EntityID
	Note   string
}

// EventLog is a fixed-size ring buffer of recent zone events. Owned by
// the zone runtime; readers go through the runtime's command queue.
type EventLog struct {
	buf  []Event
	next int
	full bool
}

// NewEventLog creates a ring holding up to size events.
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = 256
	}
	return &EventLog{buf: make([]Event, size)}
}

// Add appends an event, evicting the oldest when full.
func (l *EventLog) Add(ev Event) {
	l.buf[l.next] = ev
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	if l.full {
		return len(l.buf)
	}
	return l.next
}

// Tail returns up to n most recent events, oldest first.
func (l *EventLog) Tail(n int) []Event {
	total := l.Len()
	if n > total {
		n = total
	}
	out := make([]Event, 0, n)
	start := l.next - n
	if start < 0 {
		start += len(l.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, l.buf[(start+i)%len(l.buf)])
	}
	return out
}
