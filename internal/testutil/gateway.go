package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// Call is one request received by a ScriptedGateway.
type Call struct {
	Speaker   core.Speaker
	Prompt    string
	MaxTokens int64
}

// ScriptedGateway is a core.Gateway that answers from a script and records
// every call. Without a script it replies "<speaker> says <n>".
type ScriptedGateway struct {
	mu    sync.Mutex
	calls []Call
	// Reply, when set, produces the text of call n (1-based).
	Reply func(ctx context.Context, n int, c Call) string
}

var _ core.Gateway = (*ScriptedGateway)(nil)

// Respond implements core.Gateway.
func (g *ScriptedGateway) Respond(ctx context.Context, s core.Speaker, prompt string, maxTokens int64) string {
	c := Call{Speaker: s, Prompt: prompt, MaxTokens: maxTokens}
	g.mu.Lock()
	g.calls = append(g.calls, c)
	n, reply := len(g.calls), g.Reply
	g.mu.Unlock()

	if reply != nil {
		return reply(ctx, n, c)
	}
	return fmt.Sprintf("%s says %d", s, n)
}

// Calls returns a copy of the received calls.
func (g *ScriptedGateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Speakers returns the speaker of each call in order.
func (g *ScriptedGateway) Speakers() []core.Speaker {
	calls := g.Calls()
	out := make([]core.Speaker, len(calls))
	for i, c := range calls {
		out[i] = c.Speaker
	}
	return out
}
