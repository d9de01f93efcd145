package prompt

// Stage is the conversational tier of a middle turn, selected from progress.
type Stage int

const (
	// StageDiverge broadens the discussion with many options.
	StageDiverge Stage = iota
	// StageDeepen digs into concrete specifics.
	StageDeepen
	// StageConverge narrows down to a single best answer.
	StageConverge
)

const (
	deepenThreshold   = 0.3
	convergeThreshold = 0.7
)

// StageFor maps a progress fraction to its Stage. Lower bounds are inclusive:
// 0.3 deepens and 0.7 converges.
func StageFor(progress float64) Stage {
	switch {
	case progress < deepenThreshold:
		return StageDiverge
	case progress < convergeThreshold:
		return StageDeepen
	default:
		return StageConverge
	}
}

// String returns the stage descriptor embedded in the prompt.
func (s Stage) String() string {
	switch s {
	case StageDiverge:
		return "the stage of broadening the discussion"
	case StageDeepen:
		return "the stage of getting concrete and digging deeper"
	default:
		return "the stage of converging on a conclusion"
	}
}

// Guidance returns the stage-specific instruction bullet.
func (s Stage) Guidance() string {
	switch s {
	case StageDiverge:
		return "Put forward a wide range of options and ideas"
	case StageDeepen:
		return "Name specific products, model numbers and prices"
	default:
		return "Narrow the options down to the single best answer"
	}
}
