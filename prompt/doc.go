// Package prompt stages the instruction text handed to a speaker for one turn.
//
// Three mutually exclusive templates exist: the opening turn, the middle
// turns (whose wording follows a progress-driven Stage) and the final,
// conclusive turn. Building is pure: the output depends only on the Input.
package prompt
