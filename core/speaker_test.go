package core

import "testing"

func TestSpeaker_NamesAndParse(t *testing.T) {
	for _, s := range Speakers() {
		got, ok := ParseSpeaker(s.String())
		if !ok || got != s {
			t.Fatalf("ParseSpeaker(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseSpeaker("Llama"); ok {
		t.Fatal("unknown names must not parse")
	}
	if Speaker(7).Valid() || Speaker(7).String() != "Unknown" {
		t.Fatal("out of range speaker should be invalid")
	}
}

func TestSpeaker_NextCycles(t *testing.T) {
	if SpeakerGPT.Next() != SpeakerClaude || SpeakerClaude.Next() != SpeakerGemini || SpeakerGemini.Next() != SpeakerGPT {
		t.Fatal("unexpected cycle order")
	}
	if OpeningSpeaker.String() != "GPT-4" {
		t.Fatalf("opening speaker = %s", OpeningSpeaker)
	}
}
