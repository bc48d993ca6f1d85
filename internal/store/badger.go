package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"guestbook/internal/model"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	badgerPrefix      = "msg:"
	badgerIndexPrefix = "ts:"
	badgerSeqKey      = "seq:messages"
	badgerGCInterval  = 5 * time.Minute

	// conflicting appends of the same timestamp are retried this many times
	badgerAppendAttempts = 3
)

// badgerRecord is the stored value; the key only carries the position.
type badgerRecord struct {
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Message   string `json:"message"`
}

// BadgerStore keeps one "msg:<seq>" key per message, where seq is a
// zero-padded insertion counter, so prefix iteration yields the messages in
// the order they were written even when the clock steps back. A
// "ts:<timestamp>" index points at the message key so a re-used timestamp
// overwrites the existing record in place.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	clock  Clock
	logger *zap.Logger

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewBadgerStore opens (or creates) the database at path and starts the
// value log GC loop.
func NewBadgerStore(path string, clock Clock, logger *zap.Logger) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("badger store: path is required")
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s, err := newBadgerStore(db, clock, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go s.runGC(badgerGCInterval)
	return s, nil
}

func newBadgerStore(db *badger.DB, clock Clock, logger *zap.Logger) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(badgerSeqKey), 100)
	if err != nil {
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{
		db:     db,
		seq:    seq,
		clock:  clock,
		logger: logger,
		stop:   make(chan struct{}),
	}, nil
}

func (s *BadgerStore) Append(ctx context.Context, username, body string) (model.Message, error) {
	msg := model.NewMessage(s.clock(), username, body)
	if err := ctx.Err(); err != nil {
		return msg, err
	}

	data, err := json.Marshal(badgerRecord{
		Timestamp: msg.Timestamp,
		Username:  msg.Username,
		Message:   msg.Body,
	})
	if err != nil {
		return msg, err
	}

	for attempt := 1; ; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			key, err := s.messageKey(txn, msg.Timestamp)
			if err != nil {
				return err
			}
			return txn.Set(key, data)
		})
		if !errors.Is(err, badger.ErrConflict) || attempt == badgerAppendAttempts {
			break
		}
	}
	if err != nil {
		return msg, fmt.Errorf("badger append: %w", err)
	}
	return msg, nil
}

// messageKey returns the key already used for timestamp, or allocates the
// next sequence number and indexes it.
func (s *BadgerStore) messageKey(txn *badger.Txn, timestamp string) ([]byte, error) {
	indexKey := []byte(badgerIndexPrefix + timestamp)

	item, err := txn.Get(indexKey)
	if err == nil {
		return item.ValueCopy(nil)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	n, err := s.seq.Next()
	if err != nil {
		return nil, err
	}
	key := []byte(fmt.Sprintf("%s%020d", badgerPrefix, n))
	if err := txn.Set(indexKey, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *BadgerStore) Load(ctx context.Context) (*model.Document, error) {
	doc := model.NewDocument()
	if err := ctx.Err(); err != nil {
		return doc, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec badgerRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return &CorruptError{Path: string(item.Key()), Err: err}
				}
				doc.Put(model.Message{
					Timestamp: rec.Timestamp,
					Username:  rec.Username,
					Body:      rec.Message,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.NewDocument(), err
	}
	return doc, nil
}

// Close stops the GC loop, returns unused sequence numbers and closes the
// database. Only the first call does anything.
func (s *BadgerStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if err := s.seq.Release(); err != nil {
			s.logger.Warn("Failed to release badger sequence", zap.Error(err))
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.7); err != nil && err != badger.ErrNoRewrite {
				s.logger.Warn("Badger value log GC failed", zap.Error(err))
			}
		}
	}
}
