// Package session persists conversations.
//
// Store implements core.ConversationStore on top of a Backend that only
// knows how to get, put and list whole records. The two halves of the
// transcript contract are asymmetric:
//
//   - Load is forgiving: a missing or unreadable conversation yields an
//     empty transcript and a logged warning.
//   - Save is strict: any write failure is returned to the caller.
//
// Backends live in sub-packages (file, gormstore, redisstore); the
// in-memory backend here is suited for tests and ephemeral servers.
package session
