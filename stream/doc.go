// Package stream delivers conversation events to a consumer as they happen.
//
// Every emitter writes one self-contained record per event, flushed before
// Emit returns, in strict call order:
//
//   - WriterEmitter: newline-delimited JSON, e.g. for stdout
//   - SSEEmitter: server-sent events frames ("data: <json>")
//   - ChannelEmitter: in-process delivery over a Go channel
package stream
