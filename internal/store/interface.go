package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guestbook/internal/model"

	"go.uber.org/zap"
)

var (
	// ErrCorrupt marks a stored document that could not be parsed.
	ErrCorrupt = errors.New("message document is corrupt")

	ErrUnknownBackend = errors.New("unknown store backend")
)

// Store persists guestbook messages.
//
// Load never returns a nil document: when the stored data is missing or
// unreadable it returns an empty one, together with the error (if any) so
// the caller can decide whether to log it.
type Store interface {
	Append(ctx context.Context, username, body string) (model.Message, error)
	Load(ctx context.Context) (*model.Document, error)
	Close() error
}

// Clock returns the instant used to key a new message.
type Clock func() time.Time

// CorruptError reports where an unparsable document was found and, for the
// file backend, where it was moved to.
type CorruptError struct {
	Path       string
	Quarantine string
	Err        error
}

func (e *CorruptError) Error() string {
	if e.Quarantine != "" {
		return fmt.Sprintf("%s: %v (moved to %s)", e.Path, e.Err, e.Quarantine)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorrupt, e.Err}
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string
	Path       string
	BadgerPath string
	RedisAddr  string
	Clock      Clock
	Logger     *zap.Logger
}

// Open creates the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch opts.Backend {
	case "", "json":
		return NewJSONStore(opts.Path, opts.Clock, opts.Logger), nil
	case "badger":
		return NewBadgerStore(opts.BadgerPath, opts.Clock, opts.Logger)
	case "redis":
		return NewRedisStore(opts.RedisAddr, opts.Clock, opts.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
