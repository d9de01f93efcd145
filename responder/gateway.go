package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/model"
)

// ErrMissingModel is returned when a speaker of the cycle has no backend.
var ErrMissingModel = errors.New("missing model for speaker")

const (
	// DefaultErrorCap bounds the error description of most speakers.
	DefaultErrorCap = 30
	// GeminiErrorCap is the wider bound used for Gemini failures.
	GeminiErrorCap = 50
)

// Options configures a Gateway.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Collector
	// Timeout bounds a single backend call; zero leaves it to the client.
	Timeout time.Duration
	// Timeouts overrides Timeout per speaker.
	Timeouts map[core.Speaker]time.Duration
	// ErrorCaps overrides the rune bound of the error marker per speaker.
	ErrorCaps map[core.Speaker]int
}

// Gateway dispatches prompts to the model bound to each speaker.
type Gateway struct {
	models map[core.Speaker]model.Model
	opts   Options
}

var _ core.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway. Every speaker of the cycle must be bound.
func NewGateway(models map[core.Speaker]model.Model, optFns ...func(o *Options)) (*Gateway, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
		ErrorCaps: map[core.Speaker]int{
			core.SpeakerGPT:    DefaultErrorCap,
			core.SpeakerClaude: DefaultErrorCap,
			core.SpeakerGemini: GeminiErrorCap,
		},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	bound := make(map[core.Speaker]model.Model, core.NumSpeakers)
	for _, s := range core.Speakers() {
		m, ok := models[s]
		if !ok || m == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingModel, s)
		}
		bound[s] = m
	}

	return &Gateway{models: bound, opts: opts}, nil
}

// Respond implements core.Gateway.
func (g *Gateway) Respond(ctx context.Context, speaker core.Speaker, prompt string, maxTokens int64) string {
	m, ok := g.models[speaker]
	if !ok {
		return g.marker(speaker, fmt.Errorf("%w: %s", ErrMissingModel, speaker))
	}

	timeout := g.opts.Timeout
	if t, ok := g.opts.Timeouts[speaker]; ok {
		timeout = t
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := model.Collect(callCtx, m, model.Request{Prompt: prompt, MaxTokens: maxTokens})
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = model.ErrEmptyResponse
	}
	g.opts.Metrics.RecordTurn(speaker.String(), err != nil, time.Since(start))

	if err != nil {
		g.opts.Logger.Warn("backend call failed",
			"component", "responder",
			"speaker", speaker.String(),
			"model", m.Info().Name,
			"error", err,
		)
		return g.marker(speaker, err)
	}

	if resp.Usage != nil {
		g.opts.Logger.Debug("backend call completed",
			"component", "responder",
			"speaker", speaker.String(),
			"total_tokens", resp.Usage.TotalTokens,
			"duration", time.Since(start),
		)
	}
	return strings.TrimSpace(resp.Text)
}

func (g *Gateway) marker(speaker core.Speaker, err error) string {
	limit, ok := g.opts.ErrorCaps[speaker]
	if !ok || limit <= 0 {
		limit = DefaultErrorCap
	}
	return ErrorMarker(err, limit)
}

// ErrorMarker renders err as a bracketed marker with its description cut to
// limit runes. Wrapping context is dropped so the budget goes to the
// innermost cause.
func ErrorMarker(err error, limit int) string {
	msg := "unknown error"
	if err != nil {
		msg = rootCause(err).Error()
	}
	if r := []rune(msg); len(r) > limit {
		msg = string(r[:limit])
	}
	return "[Error: " + msg + "]"
}

// rootCause follows single-error wrapping down to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// IsErrorMarker reports whether text is a marker produced by ErrorMarker.
func IsErrorMarker(text string) bool {
	return strings.HasPrefix(text, "[Error: ") && strings.HasSuffix(text, "]")
}
