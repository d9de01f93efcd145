// Package core provides the foundational domain types and interfaces used by
// Roundtable. It defines the core abstractions for:
//
//   - Speakers (the closed set of three responders and their rotation order)
//   - Turns and transcripts (append-only, turn-indexed utterances)
//   - Events (ordered, self-contained progress records for callers)
//   - Pluggable contracts for transcript persistence, event emission and
//     response generation
//
// The package keeps implementation concerns (persistence backends, model
// providers, scheduling) out of scope, exposing small interfaces so the
// scheduler can be driven by custom backends and test doubles.
package core
