// Package scheduler drives a three-speaker conversation turn by turn.
//
// A Scheduler plans the speaker rotation for a fresh or resumed
// conversation, stages each turn's prompt, asks the gateway for a reply,
// streams every turn as an event and persists the transcript once all turns
// are produced. Turns are strictly sequential: each prompt depends on the
// complete transcript before it.
//
// Rotation rules:
//
//   - Fresh: turn 1 is always spoken by the opening speaker. Middle turns
//     follow the cycle Claude, Gemini, GPT-4 and the final turn is staged as
//     the conclusion.
//   - Continuation: the cycle is rotated to start after the last stored
//     speaker and indices continue from the stored history.
//
// A fixed interval elapses before every backend call that follows an
// earlier one.
package scheduler
