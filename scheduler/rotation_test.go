package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
)

func speakers(p Plan) []core.Speaker {
	out := make([]core.Speaker, len(p.Slots))
	for i, s := range p.Slots {
		out[i] = s.Speaker
	}
	return out
}

func TestPlanFresh(t *testing.T) {
	gpt, claude, gemini := core.SpeakerGPT, core.SpeakerClaude, core.SpeakerGemini

	tests := []struct {
		turns int
		want  []core.Speaker
	}{
		{1, []core.Speaker{gpt}},
		{2, []core.Speaker{gpt, gpt}},
		{3, []core.Speaker{gpt, claude, gemini}},
		{5, []core.Speaker{gpt, claude, gemini, gpt, claude}},
		{10, []core.Speaker{gpt, claude, gemini, gpt, claude, gemini, gpt, claude, gemini, gpt}},
	}
	for _, tt := range tests {
		p := PlanFresh(tt.turns)
		assert.Equal(t, tt.want, speakers(p), "turns=%d", tt.turns)
		assert.Equal(t, tt.turns, p.Total)
	}

	assert.Empty(t, PlanFresh(0).Slots)
}

func TestPlanFresh_SingleTurnIsConclusive(t *testing.T) {
	p := PlanFresh(1)
	require.Len(t, p.Slots, 1)
	assert.True(t, p.Slots[0].Final)
	assert.False(t, p.Slots[0].First)
}

func TestPlanFresh_Progress(t *testing.T) {
	p := PlanFresh(10)
	assert.InDelta(t, 0.2, p.Slots[1].Progress, 1e-9)
	assert.InDelta(t, 0.3, p.Slots[2].Progress, 1e-9)
	assert.InDelta(t, 0.9, p.Slots[8].Progress, 1e-9)
}

func TestPlanFresh_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "turns")
		p := PlanFresh(n)

		if len(p.Slots) != n {
			t.Fatalf("planned %d slots, want %d", len(p.Slots), n)
		}
		if p.Slots[0].Speaker != core.OpeningSpeaker {
			t.Fatalf("turn 1 spoken by %s", p.Slots[0].Speaker)
		}
		for i, s := range p.Slots {
			if s.Turn != i+1 {
				t.Fatalf("slot %d has turn %d", i, s.Turn)
			}
			if s.First && s.Final {
				t.Fatalf("turn %d is both first and final", s.Turn)
			}
			if s.Final != (i == n-1) {
				t.Fatalf("turn %d final=%v", s.Turn, s.Final)
			}
			if !s.Speaker.Valid() {
				t.Fatalf("turn %d has invalid speaker", s.Turn)
			}
		}
	})
}

func TestRotatedCycle(t *testing.T) {
	assert.Equal(t, []core.Speaker{core.SpeakerClaude, core.SpeakerGemini, core.SpeakerGPT}, RotatedCycle("GPT-4"))
	assert.Equal(t, []core.Speaker{core.SpeakerGemini, core.SpeakerGPT, core.SpeakerClaude}, RotatedCycle("Claude"))
	assert.Equal(t, []core.Speaker{core.SpeakerGPT, core.SpeakerClaude, core.SpeakerGemini}, RotatedCycle("Gemini"))
	assert.Equal(t, core.Speakers(), RotatedCycle("Bard"))
}

func TestPlanContinuation_ResumeAfterGemini(t *testing.T) {
	history := testutil.NewTranscriptBuilder().Rotation(4).Named("Gemini", "last").Build()
	p := PlanContinuation(history, 3)

	require.Len(t, p.Slots, 3)
	assert.Equal(t, []int{6, 7, 8}, []int{p.Slots[0].Turn, p.Slots[1].Turn, p.Slots[2].Turn})
	assert.Equal(t, core.SpeakerGPT, p.Slots[0].Speaker)
	assert.Equal(t, core.SpeakerClaude, p.Slots[1].Speaker)
	assert.Equal(t, core.SpeakerClaude, p.Slots[2].Speaker)
	assert.True(t, p.Slots[2].Final)
	assert.Equal(t, 8, p.Total)
	assert.InDelta(t, 1.0/3.0, p.Slots[0].Progress, 1e-9)
	assert.InDelta(t, 2.0/3.0, p.Slots[1].Progress, 1e-9)
}

func TestPlanContinuation_HistoryWithSkippedIndex(t *testing.T) {
	// Five records whose conclusion was numbered 6.
	history := testutil.NewTranscriptBuilder().Rotation(5).Build()
	history[4].Turn = 6

	p := PlanContinuation(history, 2)
	require.Len(t, p.Slots, 2)
	assert.Equal(t, 7, p.Slots[0].Turn)
	assert.Equal(t, 8, p.Slots[1].Turn)
	assert.Equal(t, 8, p.Total)
}

func TestPlanContinuation_SmallCounts(t *testing.T) {
	history := testutil.NewTranscriptBuilder().Rotation(2).Build() // last speaker Claude

	p := PlanContinuation(history, 1)
	require.Len(t, p.Slots, 1)
	assert.Equal(t, Slot{Turn: 3, Speaker: core.SpeakerGemini, Final: true, Progress: 1}, p.Slots[0])

	p = PlanContinuation(history, 2)
	require.Len(t, p.Slots, 2)
	assert.Equal(t, core.SpeakerGemini, p.Slots[0].Speaker)
	assert.Equal(t, core.SpeakerGemini, p.Slots[1].Speaker)
	assert.Equal(t, 4, p.Slots[1].Turn)

	assert.Empty(t, PlanContinuation(history, 0).Slots)
}

func TestPlanContinuation_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := rapid.IntRange(1, 20).Draw(t, "history")
		n := rapid.IntRange(1, 40).Draw(t, "turns")
		last := rapid.SampledFrom(core.Speakers()).Draw(t, "last")

		b := testutil.NewTranscriptBuilder().Rotation(h-1).Turn(last, "last")
		p := PlanContinuation(b.Build(), n)

		if len(p.Slots) != n {
			t.Fatalf("planned %d slots, want %d", len(p.Slots), n)
		}
		if p.Slots[0].Speaker == last {
			t.Fatalf("continuation re-selected %s right after itself", last)
		}
		for i, s := range p.Slots {
			if s.Turn != h+1+i {
				t.Fatalf("slot %d has turn %d, want %d", i, s.Turn, h+1+i)
			}
			if s.First {
				t.Fatalf("continuation turn %d staged as opening", s.Turn)
			}
		}
		if !p.Slots[n-1].Final || p.Total != h+n {
			t.Fatalf("final slot %+v total %d", p.Slots[n-1], p.Total)
		}
	})
}
