package testutil

import (
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// RecordingEmitter captures every emitted event in order.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []core.Event
	// Err, when set, is returned by Emit after recording.
	Err error
	// OnEmit, when set, is called with each event after recording.
	OnEmit func(core.Event)
}

var _ core.Emitter = (*RecordingEmitter)(nil)

// Emit implements core.Emitter.
func (e *RecordingEmitter) Emit(ev core.Event) error {
	e.mu.Lock()
	e.events = append(e.events, ev)
	hook, err := e.OnEmit, e.Err
	e.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return err
}

// Events returns a copy of the recorded events.
func (e *RecordingEmitter) Events() []core.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Event, len(e.events))
	copy(out, e.events)
	return out
}

// Types returns the recorded event types in order.
func (e *RecordingEmitter) Types() []core.EventType {
	events := e.Events()
	out := make([]core.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// Turns returns the turn records of the recorded message events.
func (e *RecordingEmitter) Turns() []core.TurnRecord {
	var out []core.TurnRecord
	for _, ev := range e.Events() {
		if rec, ok := ev.Turn(); ok {
			out = append(out, rec)
		}
	}
	return out
}
