package session

import (
	"context"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// InMemoryBackend is a volatile Backend storing conversations in a process
// local map. It is safe for concurrent access. Records are cloned on the way
// in and out to prevent external mutation of internal state.
type InMemoryBackend struct {
	mu      sync.RWMutex
	records map[string]core.ConversationRecord
}

// NewInMemoryBackend constructs an empty in‑memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{records: make(map[string]core.ConversationRecord)}
}

// Get returns a clone of the stored record or core.ErrNotFound.
func (b *InMemoryBackend) Get(_ context.Context, id string) (core.ConversationRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[id]
	if !ok {
		return core.ConversationRecord{}, core.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Put stores a clone of rec, replacing any record with the same id.
func (b *InMemoryBackend) Put(_ context.Context, rec core.ConversationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[rec.ID] = cloneRecord(rec)
	return nil
}

// List returns clones of all stored records in no particular order.
func (b *InMemoryBackend) List(_ context.Context) ([]core.ConversationRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.ConversationRecord, 0, len(b.records))
	for _, rec := range b.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func cloneRecord(rec core.ConversationRecord) core.ConversationRecord {
	rec.Messages = rec.Messages.Clone()
	return rec
}
