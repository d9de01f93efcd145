package core

import "context"

// Emitter publishes events to a caller in strict call order. Each call must
// be delivered before it returns; implementations never buffer across calls.
type Emitter interface {
	Emit(ev Event) error
}

// EmitterFunc adapts an ordinary function to the Emitter interface.
type EmitterFunc func(ev Event) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ev Event) error { return f(ev) }

// Gateway produces the text of one turn. It never fails: backend errors are
// rendered into a bounded placeholder that becomes the turn's text.
type Gateway interface {
	Respond(ctx context.Context, speaker Speaker, prompt string, maxTokens int64) string
}
