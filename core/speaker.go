package core

// Speaker identifies one of the three responders taking part in a
// conversation. The set is closed; rotation is resolved by index arithmetic.
type Speaker uint8

const (
	// SpeakerGPT is backed by the OpenAI chat completions API and always opens
	// a fresh conversation.
	SpeakerGPT Speaker = iota
	// SpeakerClaude is backed by the Anthropic messages API.
	SpeakerClaude
	// SpeakerGemini is backed by the Google Gemini API.
	SpeakerGemini
)

// NumSpeakers is the size of the rotation cycle.
const NumSpeakers = 3

// OpeningSpeaker produces turn 1 of every fresh conversation.
const OpeningSpeaker = SpeakerGPT

var speakerNames = [NumSpeakers]string{"GPT-4", "Claude", "Gemini"}

// String returns the persisted display name of the speaker.
func (s Speaker) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return speakerNames[s]
}

// Valid reports whether s is a member of the rotation cycle.
func (s Speaker) Valid() bool { return s < NumSpeakers }

// Next returns the speaker following s in cycle order.
func (s Speaker) Next() Speaker { return (s + 1) % NumSpeakers }

// ParseSpeaker resolves a persisted name. Names outside the cycle (legacy
// data) report false.
func ParseSpeaker(name string) (Speaker, bool) {
	for i, n := range speakerNames {
		if n == name {
			return Speaker(i), true
		}
	}
	return 0, false
}

// Speakers returns the cycle in its fixed order.
func Speakers() []Speaker {
	return []Speaker{SpeakerGPT, SpeakerClaude, SpeakerGemini}
}
