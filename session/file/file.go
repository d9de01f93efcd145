// Package file stores conversations as indented JSON files, one per
// conversation, named chat_<id>.json inside a directory that is created on
// demand.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
)

// DefaultDir is the default storage directory.
const DefaultDir = "chat"

const (
	filePrefix = "chat_"
	fileSuffix = ".json"
)

// ErrInvalidID is returned for ids that cannot be mapped to a file name.
var ErrInvalidID = errors.New("invalid conversation id")

// Options configures a Backend.
type Options struct {
	Dir    string
	Logger logging.Logger
}

// Backend persists conversations in a directory.
type Backend struct {
	opts Options
}

// New creates a file backend. The directory is created on first write.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{
		Dir:    DefaultDir,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Backend{opts: opts}
}

// Path returns the file that holds conversation id.
func (b *Backend) Path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(b.opts.Dir, filePrefix+id+fileSuffix), nil
}

// Get reads a conversation. Missing files report core.ErrNotFound.
func (b *Backend) Get(_ context.Context, id string) (core.ConversationRecord, error) {
	path, err := b.Path(id)
	if err != nil {
		return core.ConversationRecord{}, err
	}
	return readRecord(path)
}

// Put writes rec, replacing any previous file atomically.
func (b *Backend) Put(_ context.Context, rec core.ConversationRecord) error {
	path, err := b.Path(rec.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", b.opts.Dir, err)
	}

	if rec.Messages == nil {
		rec.Messages = core.Transcript{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	tmp, err := os.CreateTemp(b.opts.Dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// List reads every conversation in the directory. Unreadable files are
// logged and skipped; a missing directory yields an empty list.
func (b *Backend) List(_ context.Context) ([]core.ConversationRecord, error) {
	entries, err := os.ReadDir(b.opts.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", b.opts.Dir, err)
	}

	var out []core.ConversationRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		rec, err := readRecord(filepath.Join(b.opts.Dir, name))
		if err != nil {
			b.opts.Logger.Warn("skipping unreadable conversation", "component", "session.file", "file", name, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func readRecord(path string) (core.ConversationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ConversationRecord{}, core.ErrNotFound
		}
		return core.ConversationRecord{}, fmt.Errorf("read %s: %w", path, err)
	}

	var rec core.ConversationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.ConversationRecord{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileSuffix)
	}
	return rec, nil
}
