package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// WriterEmitter writes each event as one JSON line.
// Every event is flushed to the underlying writer before Emit returns; the
// target is never fsynced.
type WriterEmitter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

var _ core.Emitter = (*WriterEmitter)(nil)

// NewWriterEmitter creates an emitter writing to w.
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: bufio.NewWriter(w)}
}

// Emit implements core.Emitter.
func (e *WriterEmitter) Emit(ev core.Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush %s event: %w", ev.Type, err)
	}
	return nil
}
