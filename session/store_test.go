package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ Backend                = (*InMemoryBackend)(nil)
	_ core.ConversationStore = (*Store)(nil)
)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 4, 15, 16, 17, 0, time.UTC)
	s := NewInMemoryStore(func(o *Options) { o.Now = fixedClock(now) })
	tr := testutil.NewTranscriptBuilder().Rotation(4).Build()

	id, err := s.Save(context.Background(), "topic", tr, "")
	require.NoError(t, err)
	assert.Equal(t, "20250304_151617", id)

	assert.Equal(t, tr, s.Load(context.Background(), id))
}

func TestStore_SaveExistingPreservesCreatedAt(t *testing.T) {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	s := NewInMemoryStore(func(o *Options) { o.Now = fixedClock(first, later) })
	ctx := context.Background()

	id, err := s.Save(ctx, "topic", testutil.NewTranscriptBuilder().Rotation(2).Build(), "")
	require.NoError(t, err)

	longer := testutil.NewTranscriptBuilder().Rotation(5).Build()
	again, err := s.Save(ctx, "topic", longer, id)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, rec.CreatedAt)
	assert.Len(t, rec.Messages, 5)
}

func TestStore_SaveUnderCallerID(t *testing.T) {
	s := NewInMemoryStore()
	id, err := s.Save(context.Background(), "topic", nil, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", id)
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	s := NewInMemoryStore()
	assert.Empty(t, s.Load(context.Background(), "nope"))
}

type brokenBackend struct {
	*InMemoryBackend
	getErr error
	putErr error
}

func (b brokenBackend) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	if b.getErr != nil {
		return core.ConversationRecord{}, b.getErr
	}
	return b.InMemoryBackend.Get(ctx, id)
}

func (b brokenBackend) Put(ctx context.Context, rec core.ConversationRecord) error {
	if b.putErr != nil {
		return b.putErr
	}
	return b.InMemoryBackend.Put(ctx, rec)
}

func TestStore_ForgivingLoadStrictSave(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewStore(brokenBackend{InMemoryBackend: NewInMemoryBackend(), getErr: boom, putErr: boom})

	assert.Empty(t, s.Load(context.Background(), "x"))

	_, err := s.Save(context.Background(), "topic", nil, "")
	assert.ErrorIs(t, err, boom)
}

func TestStore_GetNotFound(t *testing.T) {
	_, err := NewInMemoryStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	base := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	s := NewInMemoryStore(func(o *Options) {
		o.Now = fixedClock(base, base.Add(time.Minute), base.Add(2*time.Minute))
	})
	ctx := context.Background()

	for _, topic := range []string{"old", "middle", "new"} {
		_, err := s.Save(ctx, topic, testutil.NewTranscriptBuilder().Rotation(1).Build(), "")
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].Topic)
	assert.Equal(t, "old", list[2].Topic)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, "message 1", list[0].LastMessage)
}

func TestInMemoryBackend_ClonesRecords(t *testing.T) {
	b := NewInMemoryBackend()
	ctx := context.Background()
	rec := core.ConversationRecord{ID: "a", Messages: testutil.NewTranscriptBuilder().Rotation(2).Build()}
	require.NoError(t, b.Put(ctx, rec))

	rec.Messages[0].Message = "mutated"
	got, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "message 1", got.Messages[0].Message)
}
