// Package roundtable provides a high-level façade over the conversation
// scheduler and its services (transcript store, responder gateway, event
// emitters, logging and metrics). Most applications interact with this
// package by:
//  1. Creating a Roundtable via New() with a gateway bound to the three speakers
//  2. Running conversations synchronously (Run, InvokeSync) or asynchronously (Invoke)
//  3. Reading stored conversations back (Conversations, Conversation)
//
// Each run gets its own scheduler, so one Roundtable can serve several
// independent conversations at once while every single conversation stays
// strictly sequential.
package roundtable

import (
	"context"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/prompt"
	"github.com/hupe1980/roundtable/scheduler"
	"github.com/hupe1980/roundtable/session"
	"github.com/hupe1980/roundtable/stream"
)

// Request describes one conversation run.
type Request = scheduler.Request

// DefaultTurns is used when a request leaves Turns at zero.
const DefaultTurns = 10

// Options configures the Roundtable instance.
type Options struct {
	// Gateway answers prompts for each speaker (required).
	Gateway core.Gateway

	// Store persists conversations (defaults to an in-memory store).
	Store core.ConversationStore

	// Emitter receives the events of every run in addition to per-call sinks.
	Emitter core.Emitter

	// Stager builds turn prompts (defaults to prompt.NewStager()).
	Stager *prompt.Stager

	// Interval is the pacing delay between backend calls.
	Interval time.Duration

	// DefaultTurns replaces a zero Request.Turns.
	DefaultTurns int

	// EventBufferSize sets the channel buffer of Invoke.
	EventBufferSize int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Metrics records runs and turns when set.
	Metrics *metrics.Collector
}

// Roundtable is the high-level façade.
type Roundtable struct {
	opts Options
}

// New creates a new Roundtable with optional overrides. It fails when no
// gateway is configured.
func New(optFns ...func(o *Options)) (*Roundtable, error) {
	opts := Options{
		Store:           session.NewInMemoryStore(),
		Stager:          prompt.NewStager(),
		Interval:        scheduler.DefaultInterval,
		DefaultTurns:    DefaultTurns,
		EventBufferSize: 16,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.DefaultTurns <= 0 {
		opts.DefaultTurns = DefaultTurns
	}

	m := &Roundtable{opts: opts}
	// Surface misconfiguration at construction instead of on first run.
	if _, err := m.scheduler(nil); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Roundtable) scheduler(sinks []core.Emitter) (*scheduler.Scheduler, error) {
	emitters := make(stream.Fanout, 0, len(sinks)+1)
	if m.opts.Emitter != nil {
		emitters = append(emitters, m.opts.Emitter)
	}
	emitters = append(emitters, sinks...)

	return scheduler.New(func(o *scheduler.Options) {
		o.Store = m.opts.Store
		o.Gateway = m.opts.Gateway
		o.Emitter = emitters
		o.Stager = m.opts.Stager
		o.Logger = m.opts.Logger
		o.Metrics = m.opts.Metrics
		o.Interval = m.opts.Interval
	})
}

func (m *Roundtable) normalize(req Request) Request {
	if req.Turns == 0 {
		req.Turns = m.opts.DefaultTurns
	}
	return req
}

// Run executes one conversation, emitting its events to the configured
// emitter and to sinks.
func (m *Roundtable) Run(ctx context.Context, req Request, sinks ...core.Emitter) (core.ConversationRecord, error) {
	s, err := m.scheduler(sinks)
	if err != nil {
		return core.ConversationRecord{}, err
	}
	return s.Run(ctx, m.normalize(req))
}

// Invoke starts an asynchronous run returning event & error channels. The
// event channel is closed when the run ends; the error channel then carries
// at most one terminal error before it is closed too.
func (m *Roundtable) Invoke(ctx context.Context, req Request) (<-chan core.Event, <-chan error) {
	events := make(chan core.Event, m.opts.EventBufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		_, err := m.Run(ctx, req, stream.NewChannelEmitter(ctx, events))
		close(events)
		if err != nil {
			errs <- err
		}
	}()

	return events, errs
}

// InvokeSync is a synchronous helper that drains the async channels,
// accumulates events and returns the persisted conversation id.
func (m *Roundtable) InvokeSync(ctx context.Context, req Request) (string, []core.Event, error) {
	eventsCh, errorsCh := m.Invoke(ctx, req)

	var (
		id     string
		events []core.Event
	)
	for ev := range eventsCh {
		if data, ok := ev.Data.(core.CompleteData); ok {
			id = data.ConversationID
		}
		events = append(events, ev)
	}
	return id, events, <-errorsCh
}

// Conversations lists stored conversations, newest first.
func (m *Roundtable) Conversations(ctx context.Context) ([]core.ConversationSummary, error) {
	return m.opts.Store.List(ctx)
}

// Conversation returns a stored conversation or core.ErrNotFound.
func (m *Roundtable) Conversation(ctx context.Context, id string) (core.ConversationRecord, error) {
	return m.opts.Store.Get(ctx, id)
}
