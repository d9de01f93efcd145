package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/prompt"
)

var (
	// ErrTopicRequired is returned for a request without a topic.
	ErrTopicRequired = errors.New("topic required")
	// ErrInvalidTurns is returned when fewer than one turn is requested.
	ErrInvalidTurns = errors.New("turns must be at least 1")
	// ErrBusy is returned when Run is called while another run is active.
	ErrBusy = errors.New("scheduler is already running a conversation")
	// ErrMisconfigured is returned by New when a required collaborator is missing.
	ErrMisconfigured = errors.New("scheduler misconfigured")
)

// DefaultInterval is the pacing delay between backend calls.
const DefaultInterval = time.Second

// Run modes, used as log fields and metric labels.
const (
	ModeFresh        = "fresh"
	ModeContinuation = "continuation"
)

// Request describes one conversation run.
type Request struct {
	Topic          string
	Turns          int
	ConversationID string
	Continuation   bool
}

// Options configures a Scheduler.
type Options struct {
	Store   core.TranscriptStore
	Gateway core.Gateway
	Emitter core.Emitter
	Stager  *prompt.Stager
	Logger  logging.Logger
	Metrics *metrics.Collector
	// Interval is the pacing delay before every turn but the opening one.
	Interval time.Duration
	// Now stamps turn records.
	Now func() time.Time
}

// Scheduler runs one conversation at a time.
type Scheduler struct {
	opts    Options
	running atomic.Bool
}

// New creates a Scheduler. Store and Gateway are required.
func New(optFns ...func(o *Options)) (*Scheduler, error) {
	opts := Options{
		Interval: DefaultInterval,
		Logger:   logging.NoOpLogger{},
		Now:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("%w: transcript store is required", ErrMisconfigured)
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("%w: gateway is required", ErrMisconfigured)
	}
	if opts.Emitter == nil {
		opts.Emitter = core.EmitterFunc(func(core.Event) error { return nil })
	}
	if opts.Stager == nil {
		opts.Stager = prompt.NewStager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{opts: opts}, nil
}

// run holds the state of a single Run call. The transcript is owned by the
// run and handed to the store at the end.
type run struct {
	req        Request
	mode       string
	plan       Plan
	transcript core.Transcript
	preloaded  int
	// saveID is the id the run persists under; empty asks the store for a
	// new one.
	saveID string
	log    logging.Logger
}

// Run produces the requested turns and persists the conversation.
//
// An invalid request emits a single error event and returns before any turn.
// Backend failures never abort the run; they are recorded as the turn's text.
// On cancellation the completed turns are persisted once, no complete event
// is emitted and the context error is returned. A persistence failure is
// returned after all turns are produced.
func (s *Scheduler) Run(ctx context.Context, req Request) (core.ConversationRecord, error) {
	if !s.running.CompareAndSwap(false, true) {
		return core.ConversationRecord{}, ErrBusy
	}
	defer s.running.Store(false)

	req.Topic = strings.TrimSpace(req.Topic)
	if err := validate(req); err != nil {
		s.emit(s.opts.Logger, core.NewErrorEvent(errorMessage(err)))
		return core.ConversationRecord{}, err
	}

	r := s.prepare(ctx, req)
	startedAt := s.opts.Now()

	s.opts.Metrics.SessionStarted()
	r.log.Info("conversation started",
		"mode", r.mode,
		"turns", req.Turns,
		"conversation_id", req.ConversationID,
		"history", r.preloaded,
	)
	s.emit(r.log, core.NewStartEvent(req.Topic, req.Turns))

	for i, slot := range r.plan.Slots {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, r, err)
		}
		if i > 0 || r.mode == ModeContinuation {
			if err := s.pace(ctx); err != nil {
				return s.abort(ctx, r, err)
			}
		}

		text, err := s.opts.Stager.Build(prompt.Input{
			Topic:    req.Topic,
			History:  s.opts.Stager.History(r.transcript),
			Turn:     slot.Turn,
			Total:    r.plan.Total,
			First:    slot.First,
			Final:    slot.Final,
			Progress: slot.Progress,
		})
		if err != nil {
			s.opts.Metrics.SessionFinished(r.mode, metrics.SessionFailed)
			return core.ConversationRecord{}, fmt.Errorf("stage turn %d: %w", slot.Turn, err)
		}

		reply := s.opts.Gateway.Respond(ctx, slot.Speaker, text, s.opts.Stager.Budget(slot.Final))
		if err := ctx.Err(); err != nil {
			r.log.Debug("discarding turn finished after cancellation", "turn", slot.Turn)
			return s.abort(ctx, r, err)
		}

		rec := core.TurnRecord{
			AI:        slot.Speaker.String(),
			Message:   reply,
			Turn:      slot.Turn,
			Timestamp: s.opts.Now(),
		}
		r.transcript = append(r.transcript, rec)
		r.log.Debug("turn completed", "turn", slot.Turn, "speaker", rec.AI, "final", slot.Final)
		s.emit(r.log, core.NewMessageEvent(rec))
	}

	id, err := s.opts.Store.Save(ctx, req.Topic, r.transcript, r.saveID)
	if err != nil {
		s.opts.Metrics.SessionFinished(r.mode, metrics.SessionFailed)
		r.log.Error("failed to persist conversation", "error", err)
		return s.record("", req.Topic, r.transcript, startedAt), fmt.Errorf("persist conversation: %w", err)
	}

	s.opts.Metrics.SessionFinished(r.mode, metrics.SessionCompleted)
	r.log.Info("conversation completed", "conversation_id", id, "total_messages", len(r.transcript))
	s.emit(r.log, core.NewCompleteEvent(id, len(r.transcript)))

	return s.stored(ctx, id, req.Topic, r.transcript, startedAt), nil
}

// prepare loads history for a continuation and plans the turns. A failed or
// empty load falls back to a fresh plan bound to the caller's id. A fresh
// run never writes over a supplied id; it is saved under a new one.
func (s *Scheduler) prepare(ctx context.Context, req Request) *run {
	r := &run{
		req:  req,
		mode: ModeFresh,
		log: logging.With(s.opts.Logger,
			"component", "scheduler",
			"run_id", uuid.NewString(),
		),
	}

	if req.Continuation && req.ConversationID != "" {
		r.saveID = req.ConversationID
		r.transcript = s.opts.Store.Load(ctx, req.ConversationID)
	}

	if len(r.transcript) > 0 {
		r.mode = ModeContinuation
		r.preloaded = len(r.transcript)
		r.plan = PlanContinuation(r.transcript, req.Turns)
		return r
	}

	if req.Continuation {
		r.log.Warn("no history to continue, starting fresh", "conversation_id", req.ConversationID)
	}
	r.transcript = nil
	r.plan = PlanFresh(req.Turns)
	return r
}

// abort persists the turns completed before cancellation and returns cause.
func (s *Scheduler) abort(ctx context.Context, r *run, cause error) (core.ConversationRecord, error) {
	s.opts.Metrics.SessionFinished(r.mode, metrics.SessionCancelled)
	r.log.Info("conversation cancelled", "completed_turns", len(r.transcript)-r.preloaded)

	if len(r.transcript) == r.preloaded {
		return s.record(r.saveID, r.req.Topic, r.transcript, s.opts.Now()), cause
	}

	id, err := s.opts.Store.Save(context.WithoutCancel(ctx), r.req.Topic, r.transcript, r.saveID)
	if err != nil {
		r.log.Error("failed to persist cancelled conversation", "error", err)
		return s.record("", r.req.Topic, r.transcript, s.opts.Now()), errors.Join(cause, fmt.Errorf("persist conversation: %w", err))
	}
	return s.record(id, r.req.Topic, r.transcript, s.opts.Now()), cause
}

// pace blocks for the configured interval, returning early on cancellation.
func (s *Scheduler) pace(ctx context.Context) error {
	if s.opts.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) emit(log logging.Logger, ev core.Event) {
	if err := s.opts.Emitter.Emit(ev); err != nil {
		log.Warn("failed to emit event", "type", string(ev.Type), "error", err)
	}
}

// stored returns the persisted record when the store can serve it.
func (s *Scheduler) stored(ctx context.Context, id, topic string, t core.Transcript, createdAt time.Time) core.ConversationRecord {
	if cs, ok := s.opts.Store.(core.ConversationStore); ok {
		if rec, err := cs.Get(context.WithoutCancel(ctx), id); err == nil {
			return rec
		}
	}
	return s.record(id, topic, t, createdAt)
}

func (s *Scheduler) record(id, topic string, t core.Transcript, createdAt time.Time) core.ConversationRecord {
	return core.ConversationRecord{ID: id, Topic: topic, Messages: t, CreatedAt: createdAt}
}

func validate(req Request) error {
	if req.Topic == "" {
		return ErrTopicRequired
	}
	if req.Turns < 1 {
		return ErrInvalidTurns
	}
	return nil
}

// errorMessage renders the client-facing text of an invalid request.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrTopicRequired):
		return "Topic required"
	case errors.Is(err, ErrInvalidTurns):
		return "Turns must be at least 1"
	default:
		return err.Error()
	}
}
