package engine

import "time"

// EventKind names something the engine did to the memory bank.
type EventKind string

const (
	EventWrite      EventKind = "write"
	EventEvict      EventKind = "evict"
	EventCorrupt    EventKind = "corrupt"
	EventReadError  EventKind = "read_error"
	EventWriteError EventKind = "write_error"
	EventQuotaFull  EventKind = "quota_full"
	EventSeed       EventKind = "seed"
)

// Event is delivered synchronously to every observer.
type Event struct {
	Kind     EventKind
	RecordID string
	Detail   string
	Chars    int // characters deleted, for EventCorrupt
	At       time.Time
}

// Observer receives engine events. Observers run on the caller's goroutine
// and must not call back into the engine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
