package core

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// legacyTimestampLayout matches zone-less ISO timestamps written by older
// tooling (e.g. 2025-01-02T15:04:05.123456).
const legacyTimestampLayout = "2006-01-02T15:04:05.999999999"

// TurnRecord is one utterance. It is immutable once appended to a Transcript.
type TurnRecord struct {
	AI        string    `json:"ai"`
	Message   string    `json:"message"`
	Turn      int       `json:"turn"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts RFC 3339 as well as zone-less legacy timestamps.
func (r *TurnRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		AI        string `json:"ai"`
		Message   string `json:"message"`
		Turn      int    `json:"turn"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	*r = TurnRecord{AI: aux.AI, Message: aux.Message, Turn: aux.Turn, Timestamp: ts}
	return nil
}

// Transcript is the ordered, append-only list of turns of one conversation.
type Transcript []TurnRecord

// Last returns the most recent turn, if any.
func (t Transcript) Last() (TurnRecord, bool) {
	if len(t) == 0 {
		return TurnRecord{}, false
	}
	return t[len(t)-1], true
}

// Window returns the trailing n turns in chronological order.
func (t Transcript) Window(n int) Transcript {
	if n <= 0 {
		return nil
	}
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

// Clone returns an independent copy.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// ConversationRecord is the persisted form of a conversation.
type ConversationRecord struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic"`
	Messages  Transcript `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
}

// UnmarshalJSON accepts RFC 3339 as well as zone-less legacy timestamps.
func (c *ConversationRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID        string     `json:"id"`
		Topic     string     `json:"topic"`
		Messages  Transcript `json:"messages"`
		CreatedAt string     `json:"created_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.CreatedAt)
	if err != nil {
		return err
	}
	*c = ConversationRecord{ID: aux.ID, Topic: aux.Topic, Messages: aux.Messages, CreatedAt: ts}
	return nil
}

// ConversationSummary is the list view of a stored conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	LastMessage  string    `json:"last_message"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// summaryPreviewRunes bounds ConversationSummary.LastMessage.
const summaryPreviewRunes = 50

// Summarize derives the list view of a record.
func Summarize(rec ConversationRecord) ConversationSummary {
	s := ConversationSummary{
		ID:           rec.ID,
		Topic:        rec.Topic,
		CreatedAt:    rec.CreatedAt,
		MessageCount: len(rec.Messages),
	}
	if last, ok := rec.Messages.Last(); ok {
		s.LastMessage = last.Message
		if utf8.RuneCountInString(last.Message) > summaryPreviewRunes {
			s.LastMessage = string([]rune(last.Message)[:summaryPreviewRunes]) + "..."
		}
	}
	return s
}

// ParseTimestamp parses RFC 3339 timestamps and falls back to the zone-less
// legacy layout interpreted in local time. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(legacyTimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts, nil
}
