package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/roundtable/core"
)

// TranscriptBuilder provides a fluent helper for constructing transcripts in
// tests. Example:
//
//	tr := NewTranscriptBuilder().Turn(core.SpeakerGPT, "hi").Turn(core.SpeakerClaude, "hey").Build()
//
// Turn indices are assigned contiguously starting at 1.
type TranscriptBuilder struct {
	base    time.Time
	records core.Transcript
}

// NewTranscriptBuilder creates a builder with a fixed UTC base timestamp.
func NewTranscriptBuilder() *TranscriptBuilder {
	return &TranscriptBuilder{base: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// Turn appends a turn spoken by s (chainable).
func (b *TranscriptBuilder) Turn(s core.Speaker, msg string) *TranscriptBuilder {
	return b.Named(s.String(), msg)
}

// Named appends a turn by an arbitrary speaker name, e.g. legacy data (chainable).
func (b *TranscriptBuilder) Named(name, msg string) *TranscriptBuilder {
	n := len(b.records) + 1
	b.records = append(b.records, core.TurnRecord{
		AI:        name,
		Message:   msg,
		Turn:      n,
		Timestamp: b.base.Add(time.Duration(n) * time.Second),
	})
	return b
}

// Rotation appends n turns following the fresh rotation order (chainable).
func (b *TranscriptBuilder) Rotation(n int) *TranscriptBuilder {
	for i := 0; i < n; i++ {
		s := core.Speaker(len(b.records) % core.NumSpeakers)
		b.Turn(s, fmt.Sprintf("message %d", len(b.records)+1))
	}
	return b
}

// Build returns a copy of the assembled transcript.
func (b *TranscriptBuilder) Build() core.Transcript { return b.records.Clone() }
