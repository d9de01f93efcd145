package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/responder"
	"github.com/hupe1980/roundtable/session"
)

type fixture struct {
	sched   *Scheduler
	store   *session.Store
	gateway *testutil.ScriptedGateway
	emitter *testutil.RecordingEmitter
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		store:   session.NewInMemoryStore(),
		gateway: &testutil.ScriptedGateway{},
		emitter: &testutil.RecordingEmitter{},
	}
	s, err := New(append([]func(o *Options){func(o *Options) {
		o.Store = f.store
		o.Gateway = f.gateway
		o.Emitter = f.emitter
		o.Interval = 0
		o.Metrics = metrics.NewCollector()
	}}, optFns...)...)
	require.NoError(t, err)
	f.sched = s
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = New(func(o *Options) { o.Store = session.NewInMemoryStore() })
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestRun_FreshFiveTurns(t *testing.T) {
	f := newFixture(t)

	rec, err := f.sched.Run(context.Background(), Request{Topic: "best budget GPU", Turns: 5})
	require.NoError(t, err)

	assert.Equal(t, []core.EventType{
		core.EventStart,
		core.EventMessage, core.EventMessage, core.EventMessage, core.EventMessage, core.EventMessage,
		core.EventComplete,
	}, f.emitter.Types())

	events := f.emitter.Events()
	assert.Equal(t, core.StartData{Topic: "best budget GPU", Turns: 5}, events[0].Data)
	assert.Equal(t, core.CompleteData{ConversationID: rec.ID, TotalMessages: 5}, events[6].Data)

	turns := f.emitter.Turns()
	for i, tr := range turns {
		assert.Equal(t, i+1, tr.Turn)
	}
	assert.Equal(t, []core.Speaker{
		core.SpeakerGPT, core.SpeakerClaude, core.SpeakerGemini, core.SpeakerGPT, core.SpeakerClaude,
	}, f.gateway.Speakers())

	calls := f.gateway.Calls()
	assert.Contains(t, calls[0].Prompt, "Over 5 turns")
	assert.Contains(t, calls[4].Prompt, "This is the final turn (5/5).")
	for _, c := range calls[:4] {
		assert.NotContains(t, c.Prompt, "final turn")
		assert.Equal(t, int64(500), c.MaxTokens)
	}
	assert.Equal(t, int64(1000), calls[4].MaxTokens)

	stored, err := f.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Transcript(turns), stored.Messages)
	assert.Equal(t, "best budget GPU", stored.Topic)
}

func TestRun_SingleTurn(t *testing.T) {
	f := newFixture(t)

	_, err := f.sched.Run(context.Background(), Request{Topic: "weather", Turns: 1})
	require.NoError(t, err)

	calls := f.gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, core.SpeakerGPT, calls[0].Speaker)
	assert.Contains(t, calls[0].Prompt, "This is the final turn (1/1).")
}

func TestRun_HistoryWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 7})
	require.NoError(t, err)

	last := f.gateway.Calls()[6].Prompt
	assert.NotContains(t, last, "says 1\n")
	for n := 2; n <= 6; n++ {
		assert.Contains(t, last, fmt.Sprintf("says %d", n))
	}
}

func TestRun_Continuation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	history := testutil.NewTranscriptBuilder().Rotation(4).Named("Gemini", "fifth").Build()
	id, err := f.store.Save(ctx, "budget GPU", history, "")
	require.NoError(t, err)

	rec, err := f.sched.Run(ctx, Request{Topic: "budget GPU", Turns: 3, ConversationID: id, Continuation: true})
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	turns := f.emitter.Turns()
	require.Len(t, turns, 3)
	assert.NotEqual(t, "Gemini", turns[0].AI)
	assert.Equal(t, []int{6, 7, 8}, []int{turns[0].Turn, turns[1].Turn, turns[2].Turn})

	calls := f.gateway.Calls()
	assert.Contains(t, calls[0].Prompt, "Gemini: fifth")
	assert.Contains(t, calls[0].Prompt, "This is turn 6/8")
	assert.Contains(t, calls[2].Prompt, "This is the final turn (8/8).")

	stored := f.store.Load(ctx, id)
	require.Len(t, stored, 8)
	assert.Equal(t, history, stored[:5])

	events := f.emitter.Events()
	assert.Equal(t, core.CompleteData{ConversationID: id, TotalMessages: 8}, events[len(events)-1].Data)
}

func TestRun_ContinuationLoadFailureStartsFresh(t *testing.T) {
	f := newFixture(t)

	rec, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 3, ConversationID: "gone", Continuation: true})
	require.NoError(t, err)

	assert.Equal(t, "gone", rec.ID)
	turns := f.emitter.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, 1, turns[0].Turn)
	assert.Equal(t, "GPT-4", turns[0].AI)
	assert.Len(t, f.store.Load(context.Background(), "gone"), 3)
}

func TestRun_FreshWithExistingIDKeepsStoredConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	history := testutil.NewTranscriptBuilder().Rotation(5).Build()
	const id = "20250102_030405"
	_, err := f.store.Save(ctx, "budget GPU", history, id)
	require.NoError(t, err)

	rec, err := f.sched.Run(ctx, Request{Topic: "other", Turns: 2, ConversationID: id})
	require.NoError(t, err)
	assert.NotEqual(t, id, rec.ID)
	assert.Len(t, rec.Messages, 2)

	old, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "budget GPU", old.Topic)
	assert.Equal(t, history, old.Messages)

	events := f.emitter.Events()
	assert.Equal(t, core.CompleteData{ConversationID: rec.ID, TotalMessages: 2}, events[len(events)-1].Data)
}

func TestRun_BackendFailureMidSequence(t *testing.T) {
	f := newFixture(t)
	f.gateway.Reply = func(_ context.Context, n int, c testutil.Call) string {
		if n == 3 {
			return responder.ErrorMarker(errors.New("503 service unavailable, retry later please"), responder.GeminiErrorCap)
		}
		return fmt.Sprintf("%s ok", c.Speaker)
	}

	_, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 5})
	require.NoError(t, err)

	turns := f.emitter.Turns()
	require.Len(t, turns, 5)
	for i, tr := range turns {
		if i == 2 {
			assert.True(t, responder.IsErrorMarker(tr.Message))
			continue
		}
		assert.True(t, strings.HasSuffix(tr.Message, " ok"))
	}
}

func TestRun_InvalidRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.sched.Run(context.Background(), Request{Topic: "  ", Turns: 5})
	require.ErrorIs(t, err, ErrTopicRequired)
	assert.Equal(t, []core.EventType{core.EventError}, f.emitter.Types())
	assert.Equal(t, core.ErrorData{Message: "Topic required"}, f.emitter.Events()[0].Data)

	_, err = f.sched.Run(context.Background(), Request{Topic: "t", Turns: 0})
	require.ErrorIs(t, err, ErrInvalidTurns)
	assert.Empty(t, f.gateway.Calls())
}

type failingStore struct{ err error }

func (failingStore) Load(context.Context, string) core.Transcript { return nil }

func (s failingStore) Save(context.Context, string, core.Transcript, string) (string, error) {
	return "", s.err
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	boom := errors.New("read-only file system")
	f := newFixture(t, func(o *Options) { o.Store = failingStore{err: boom} })

	rec, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 3})
	require.ErrorIs(t, err, boom)

	assert.Len(t, rec.Messages, 3)
	assert.Len(t, f.emitter.Turns(), 3)
	assert.NotContains(t, f.emitter.Types(), core.EventComplete)
}

func TestRun_CancelledDuringBackendCall(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.Reply = func(_ context.Context, n int, c testutil.Call) string {
		if n == 2 {
			cancel()
		}
		return "reply"
	}

	rec, err := f.sched.Run(ctx, Request{Topic: "t", Turns: 5})
	require.ErrorIs(t, err, context.Canceled)

	assert.Len(t, f.emitter.Turns(), 1)
	assert.NotContains(t, f.emitter.Types(), core.EventComplete)

	require.NotEmpty(t, rec.ID)
	assert.Len(t, f.store.Load(context.Background(), rec.ID), 1)
}

func TestRun_CancelledDuringPacing(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Interval = time.Hour })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.emitter.OnEmit = func(ev core.Event) {
		if ev.Type == core.EventMessage {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.sched.Run(ctx, Request{Topic: "t", Turns: 3})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop while pacing")
	}
	assert.Len(t, f.gateway.Calls(), 1)
}

func TestRun_Pacing(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Interval = 20 * time.Millisecond })

	start := time.Now()
	_, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 3})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRun_RejectsOverlappingRuns(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once

	f.gateway.Reply = func(context.Context, int, testutil.Call) string {
		once.Do(func() { close(entered) })
		<-release
		return "reply"
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 2})
		done <- err
	}()

	<-entered
	_, err := f.sched.Run(context.Background(), Request{Topic: "t", Turns: 2})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	_, err = f.sched.Run(context.Background(), Request{Topic: "again", Turns: 1})
	assert.NoError(t, err)
}
