package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/util"
)

// ErrConflictingPosition is returned when a turn is flagged both first and final.
var ErrConflictingPosition = errors.New("turn cannot be both first and final")

// Input describes the conversational position of the next turn.
type Input struct {
	Topic    string
	History  string // trailing window rendered by FormatHistory
	Turn     int
	Total    int
	First    bool
	Final    bool
	Progress float64
}

// Options configures the stager.
type Options struct {
	// HistoryWindow is the number of trailing turns shown to the speaker.
	HistoryWindow int
	// MaxTokens is the generation budget of opening and middle turns.
	MaxTokens int64
	// FinalMaxTokens is the budget of the conclusive turn.
	FinalMaxTokens int64
}

// DefaultOptions mirrors the conversation contract: a five-turn window and a
// doubled budget for the conclusion.
var DefaultOptions = Options{
	HistoryWindow:  5,
	MaxTokens:      500,
	FinalMaxTokens: 1000,
}

// Stager builds staged prompts. It holds no mutable state.
type Stager struct {
	opts Options
}

// NewStager creates a Stager with DefaultOptions and optional overrides.
func NewStager(optFns ...func(o *Options)) *Stager {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultOptions.HistoryWindow
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions.MaxTokens
	}
	if opts.FinalMaxTokens <= 0 {
		opts.FinalMaxTokens = 2 * opts.MaxTokens
	}
	return &Stager{opts: opts}
}

// Build renders the instruction text for in.
func (s *Stager) Build(in Input) (string, error) {
	if in.First && in.Final {
		return "", ErrConflictingPosition
	}

	state := map[string]any{
		"topic":   in.Topic,
		"history": in.History,
		"turn":    in.Turn,
		"total":   in.Total,
	}

	var tmpl string
	switch {
	case in.First:
		tmpl = openingTemplate
	case in.Final:
		tmpl = finalTemplate
	default:
		stage := StageFor(in.Progress)
		state["stage"] = stage.String()
		state["guidance"] = stage.Guidance()
		tmpl = middleTemplate
	}

	out, err := util.RenderTemplate(tmpl, state)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Budget returns the generation budget for a turn.
func (s *Stager) Budget(final bool) int64 {
	if final {
		return s.opts.FinalMaxTokens
	}
	return s.opts.MaxTokens
}

// History renders the configured trailing window of t.
func (s *Stager) History(t core.Transcript) string {
	return FormatHistory(t, s.opts.HistoryWindow)
}

// FormatHistory renders the last n turns as "speaker: text" lines in
// chronological order.
func FormatHistory(t core.Transcript, n int) string {
	window := t.Window(n)
	lines := make([]string, len(window))
	for i, rec := range window {
		lines[i] = rec.AI + ": " + rec.Message
	}
	return strings.Join(lines, "\n")
}
