package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTranscript_WindowAndLast(t *testing.T) {
	var tr Transcript
	if _, ok := tr.Last(); ok {
		t.Fatal("empty transcript has no last turn")
	}
	for i := 1; i <= 7; i++ {
		tr = append(tr, TurnRecord{AI: "GPT-4", Message: "m", Turn: i})
	}
	w := tr.Window(5)
	if len(w) != 5 || w[0].Turn != 3 || w[4].Turn != 7 {
		t.Fatalf("unexpected window: %+v", w)
	}
	if len(tr.Window(10)) != 7 || tr.Window(0) != nil {
		t.Fatal("window bounds not honored")
	}
	last, _ := tr.Last()
	if last.Turn != 7 {
		t.Fatalf("last turn = %d", last.Turn)
	}

	clone := tr.Clone()
	clone[0].Message = "changed"
	if tr[0].Message != "m" {
		t.Fatal("clone must not alias the original")
	}
}

func TestConversationRecord_LegacyTimestamps(t *testing.T) {
	raw := `{"id":"20250101_120000","topic":"t","messages":[{"ai":"GPT-4","message":"hello","turn":1,"timestamp":"2025-01-01T12:00:00.123456"}],"created_at":"2025-01-01T12:00:05"}`
	var rec ConversationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal legacy record: %v", err)
	}
	if len(rec.Messages) != 1 || rec.Messages[0].Timestamp.Nanosecond() != 123456000 {
		t.Fatalf("unexpected messages: %+v", rec.Messages)
	}
	if rec.CreatedAt.Second() != 5 {
		t.Fatalf("unexpected created_at: %v", rec.CreatedAt)
	}
}

func TestConversationRecord_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	rec := ConversationRecord{
		ID:        "20250304_050607",
		Topic:     "topic",
		Messages:  Transcript{{AI: "Claude", Message: "a", Turn: 1, Timestamp: now}},
		CreatedAt: now,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got ConversationRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.CreatedAt.Equal(now) || !got.Messages[0].Timestamp.Equal(now) || got.Messages[0].Message != "a" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
	if ts, err := ParseTimestamp(""); err != nil || !ts.IsZero() {
		t.Fatal("empty timestamp should be zero")
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("あ", 60)
	rec := ConversationRecord{ID: "x", Topic: "t", Messages: Transcript{{Message: "short"}, {Message: long}}}
	s := Summarize(rec)
	if s.MessageCount != 2 || s.LastMessage != strings.Repeat("あ", 50)+"..." {
		t.Fatalf("unexpected summary: %+v", s)
	}

	s = Summarize(ConversationRecord{ID: "y"})
	if s.LastMessage != "" || s.MessageCount != 0 {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}
