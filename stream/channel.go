package stream

import (
	"context"

	"github.com/hupe1980/roundtable/core"
)

// ChannelEmitter forwards events to a channel. Emit blocks until the event
// is received or ctx is done.
type ChannelEmitter struct {
	ctx context.Context
	ch  chan<- core.Event
}

var _ core.Emitter = (*ChannelEmitter)(nil)

// NewChannelEmitter creates an emitter sending to ch until ctx is done.
func NewChannelEmitter(ctx context.Context, ch chan<- core.Event) *ChannelEmitter {
	return &ChannelEmitter{ctx: ctx, ch: ch}
}

// Emit implements core.Emitter.
func (e *ChannelEmitter) Emit(ev core.Event) error {
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.ch <- ev:
		return nil
	}
}

// Fanout emits every event to all emitters, returning the first error.
type Fanout []core.Emitter

// Emit implements core.Emitter.
func (f Fanout) Emit(ev core.Event) error {
	var first error
	for _, e := range f {
		if err := e.Emit(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
