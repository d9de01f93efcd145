package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
)

// IDLayout formats conversation ids with second resolution. Two new
// conversations saved within the same second share an id.
const IDLayout = "20060102_150405"

// NewID derives a conversation id from t.
func NewID(t time.Time) string { return t.Format(IDLayout) }

// Backend persists whole conversation records by id. Get reports
// core.ErrNotFound for unknown ids.
type Backend interface {
	Get(ctx context.Context, id string) (core.ConversationRecord, error)
	Put(ctx context.Context, rec core.ConversationRecord) error
	List(ctx context.Context) ([]core.ConversationRecord, error)
}

// Options configures a Store.
type Options struct {
	Logger logging.Logger
	// Now stamps new ids and creation times.
	Now func() time.Time
}

// Store implements core.ConversationStore over a Backend.
type Store struct {
	backend Backend
	opts    Options
}

var _ core.ConversationStore = (*Store)(nil)

// NewStore wraps backend.
func NewStore(backend Backend, optFns ...func(o *Options)) *Store {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{backend: backend, opts: opts}
}

// NewInMemoryStore returns a Store over a fresh InMemoryBackend.
func NewInMemoryStore(optFns ...func(o *Options)) *Store {
	return NewStore(NewInMemoryBackend(), optFns...)
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend { return s.backend }

// Load returns the stored messages of id. Any failure yields an empty
// transcript.
func (s *Store) Load(ctx context.Context, id string) core.Transcript {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.opts.Logger.Debug("conversation not found", "component", "session", "conversation_id", id)
		} else {
			s.opts.Logger.Warn("failed to load conversation", "component", "session", "conversation_id", id, "error", err)
		}
		return core.Transcript{}
	}
	return rec.Messages
}

// Save persists transcript under existingID, or under a new timestamp id
// when existingID is empty. The creation time of an existing record is kept.
func (s *Store) Save(ctx context.Context, topic string, transcript core.Transcript, existingID string) (string, error) {
	now := s.opts.Now()
	rec := core.ConversationRecord{
		ID:        existingID,
		Topic:     topic,
		Messages:  transcript,
		CreatedAt: now,
	}

	if existingID == "" {
		rec.ID = NewID(now)
	} else if prev, err := s.backend.Get(ctx, existingID); err == nil && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	}

	if err := s.backend.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("save conversation %s: %w", rec.ID, err)
	}

	s.opts.Logger.Debug("conversation saved", "component", "session", "conversation_id", rec.ID, "messages", len(transcript))
	return rec.ID, nil
}

// Get returns the full record of id or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		return core.ConversationRecord{}, err
	}
	return rec, nil
}

// List returns summaries of all conversations, newest first. Unreadable
// records are skipped by the backends.
func (s *Store) List(ctx context.Context) ([]core.ConversationSummary, error) {
	records, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	out := make([]core.ConversationSummary, len(records))
	for i, rec := range records {
		out[i] = core.Summarize(rec)
	}
	return out, nil
}
