package scheduler

import "github.com/hupe1980/roundtable/core"

// Slot is one planned turn.
type Slot struct {
	Turn     int
	Speaker  core.Speaker
	First    bool
	Final    bool
	Progress float64
}

// Plan is the ordered list of turns a run will produce. Total is the
// denominator shown in prompts: the index of the last planned turn.
type Plan struct {
	Slots []Slot
	Total int
}

// middleCycle is the fixed order after the opening turn of a fresh
// conversation.
var middleCycle = []core.Speaker{core.SpeakerClaude, core.SpeakerGemini, core.SpeakerGPT}

// repeatCycle repeats cycle enough times to cover n positions.
func repeatCycle(cycle []core.Speaker, n int) []core.Speaker {
	reps := n/len(cycle) + 1
	out := make([]core.Speaker, 0, reps*len(cycle))
	for range reps {
		out = append(out, cycle...)
	}
	return out
}

// PlanFresh plans a new conversation of n turns. Turn 1 is always produced
// by core.OpeningSpeaker; a single-turn conversation is staged as conclusive.
func PlanFresh(n int) Plan {
	if n < 1 {
		return Plan{}
	}
	if n == 1 {
		return Plan{
			Slots: []Slot{{Turn: 1, Speaker: core.OpeningSpeaker, Final: true, Progress: 1}},
			Total: 1,
		}
	}

	cycle := repeatCycle(middleCycle, n-1)
	slots := make([]Slot, 0, n)
	slots = append(slots, Slot{Turn: 1, Speaker: core.OpeningSpeaker, First: true})
	for i := 2; i < n; i++ {
		slots = append(slots, Slot{
			Turn:     i,
			Speaker:  cycle[i-2],
			Progress: float64(i) / float64(n),
		})
	}

	final := core.OpeningSpeaker
	if n > 2 {
		final = cycle[n-2]
	}
	slots = append(slots, Slot{Turn: n, Speaker: final, Final: true, Progress: 1})
	return Plan{Slots: slots, Total: n}
}

// RotatedCycle returns the speaker cycle starting right after last. Names
// outside the cycle leave it unrotated.
func RotatedCycle(last string) []core.Speaker {
	order := core.Speakers()
	s, ok := core.ParseSpeaker(last)
	if !ok {
		return order
	}
	rotated := make([]core.Speaker, 0, len(order))
	for next, i := s.Next(), 0; i < len(order); next, i = next.Next(), i+1 {
		rotated = append(rotated, next)
	}
	return rotated
}

// PlanContinuation plans n more turns on top of history. Indices continue
// contiguously after the last stored turn and progress is relative to the
// new segment. Older histories may skip an index before their last turn, so
// numbering resumes after whichever is larger: the count or the last index.
func PlanContinuation(history core.Transcript, n int) Plan {
	if n < 1 {
		return Plan{}
	}

	start := len(history) + 1
	var lastAI string
	if last, ok := history.Last(); ok {
		lastAI = last.AI
		start = max(last.Turn, len(history)) + 1
	}
	order := RotatedCycle(lastAI)
	full := repeatCycle(order, n-1)

	slots := make([]Slot, 0, n)
	for k := 0; k < n-1; k++ {
		slots = append(slots, Slot{
			Turn:     start + k,
			Speaker:  full[k],
			Progress: float64(k+1) / float64(n),
		})
	}

	final := order[0]
	if n > 1 {
		final = full[n-2]
	}
	end := start + n - 1
	slots = append(slots, Slot{Turn: end, Speaker: final, Final: true, Progress: 1})
	return Plan{Slots: slots, Total: end}
}
