package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by strict lookups of unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

// TranscriptStore persists conversations by id. The two methods carry
// different contracts:
//   - Load is forgiving: any read or parse failure yields an empty transcript,
//     which callers treat exactly like "no prior history"
//   - Save is strict: failures are returned so produced turns are never
//     silently lost
type TranscriptStore interface {
	Load(ctx context.Context, id string) Transcript
	Save(ctx context.Context, topic string, transcript Transcript, existingID string) (string, error)
}

// ConversationStore extends TranscriptStore with the read paths used by the
// CLI and HTTP surfaces.
type ConversationStore interface {
	TranscriptStore
	Get(ctx context.Context, id string) (ConversationRecord, error)
	List(ctx context.Context) ([]ConversationSummary, error)
}
