package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"guestbook/internal/model"

	"go.uber.org/zap"
)

// JSONStore keeps the whole document in one pretty-printed JSON file and
// rewrites it on every append.
type JSONStore struct {
	path   string
	clock  Clock
	logger *zap.Logger

	// mu serializes the load-mutate-write cycle
	mu sync.Mutex

	// createTemp opens the file a new version is written to
	createTemp func(dir, pattern string) (*os.File, error)
}

func NewJSONStore(path string, clock Clock, logger *zap.Logger) *JSONStore {
	return &JSONStore{
		path:       path,
		clock:      clock,
		logger:     logger,
		createTemp: os.CreateTemp,
	}
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Append loads the current document, adds the message and replaces the file.
// A corrupt document is moved aside and replaced by one holding only the
// new message.
func (s *JSONStore) Append(ctx context.Context, username, body string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.NewMessage(s.clock(), username, body)
	if err := ctx.Err(); err != nil {
		return msg, err
	}

	doc, err := s.read()
	if err != nil {
		var corrupt *CorruptError
		if !errors.As(err, &corrupt) {
			return msg, err
		}
		corrupt.Quarantine = s.quarantine()
		s.logger.Warn("Message document is corrupt, starting over", zap.Error(corrupt))
	}

	doc.Put(msg)

	if err := s.write(doc); err != nil {
		return msg, err
	}
	return msg, nil
}

// Load returns the stored document, or an empty one when the file is missing
// or cannot be parsed.
func (s *JSONStore) Load(ctx context.Context) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.NewDocument(), err
	}
	return s.read()
}

func (s *JSONStore) Close() error {
	return nil
}

// read never returns a nil document.
func (s *JSONStore) read() (*model.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.NewDocument(), fmt.Errorf("read %s: %w", s.path, err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return model.NewDocument(), &CorruptError{Path: s.path, Err: err}
	}
	return doc, nil
}

// write replaces the file atomically: a temp file in the same directory is
// synced and renamed over the target.
func (s *JSONStore) write(doc *model.Document) error {
	data, err := model.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := s.createTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// quarantine moves an unparsable document out of the way and returns its
// new name, or "" if it could not be moved.
func (s *JSONStore) quarantine() string {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, s.clock().UnixNano())
	if err := os.Rename(s.path, target); err != nil {
		s.logger.Error("Failed to move corrupt document aside", zap.Error(err))
		return ""
	}
	return target
}
