// Package responder binds the three conversation speakers to their model
// backends.
//
// The Gateway never surfaces a backend failure to the caller: a failed call
// becomes a short bracketed marker such as "[Error: rate limit exceeded]"
// that is recorded as the turn's text, so the conversation keeps its length
// and ordering.
package responder
