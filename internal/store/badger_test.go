package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"guestbook/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newMemoryBadgerStore uses in-memory Badger so nothing touches disk
func newMemoryBadgerStore(t *testing.T, clock Clock) (*BadgerStore, *badger.DB) {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)

	st, err := newBadgerStore(db, clock, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, db
}

func TestBadgerStore_AppendAndLoad(t *testing.T) {
	st, db := newMemoryBadgerStore(t, tickingClock(epoch, time.Second))

	ctx := context.Background()
	first, err := st.Append(ctx, "alice", "hello")
	require.NoError(t, err)
	_, err = st.Append(ctx, "bob", "привет")
	require.NoError(t, err)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	msgs := doc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].Username)
	assert.Equal(t, "привет", msgs[1].Body)
	assert.Equal(t, model.TimestampKey(epoch.Add(time.Second)), msgs[1].Timestamp)

	// The timestamp index points at a record holding the full message
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerIndexPrefix + first.Timestamp))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		assert.Regexp(t, `^msg:\d{20}$`, string(key))

		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var raw map[string]string
		require.NoError(t, json.Unmarshal(val, &raw))
		assert.Equal(t, map[string]string{
			"timestamp": first.Timestamp,
			"username":  "alice",
			"message":   "hello",
		}, raw)
		return nil
	})
	assert.NoError(t, err)
}

func TestBadgerStore_ClockSteppingBackKeepsInsertionOrder(t *testing.T) {
	noon := time.Date(2024, 11, 3, 12, 0, 0, 0, time.Local)
	st, _ := newMemoryBadgerStore(t, steppingClock(noon, noon.Add(-time.Hour), noon.Add(-2*time.Hour)))

	ctx := context.Background()
	for _, body := range []string{"first", "second", "third"} {
		_, err := st.Append(ctx, "alice", body)
		require.NoError(t, err)
	}

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	msgs := doc.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Body, msgs[1].Body, msgs[2].Body})
}

func TestBadgerStore_CollisionOverwritesInPlace(t *testing.T) {
	st, _ := newMemoryBadgerStore(t, steppingClock(epoch, epoch.Add(time.Second), epoch))

	ctx := context.Background()
	_, err := st.Append(ctx, "alice", "one")
	require.NoError(t, err)
	_, err = st.Append(ctx, "bob", "two")
	require.NoError(t, err)
	_, err = st.Append(ctx, "carol", "three")
	require.NoError(t, err)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	msgs := doc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "carol", msgs[0].Username)
	assert.Equal(t, "bob", msgs[1].Username)
}

func TestBadgerStore_OpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// Second session's clock is behind the first one
	st, err := NewBadgerStore(dir, fixedClock(epoch), zap.NewNop())
	require.NoError(t, err)
	_, err = st.Append(ctx, "alice", "hello")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = NewBadgerStore(dir, fixedClock(epoch.Add(-time.Hour)), zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Append(ctx, "bob", "later")
	require.NoError(t, err)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	msgs := doc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].Username)
	assert.Equal(t, "bob", msgs[1].Username)
}

func TestBadgerStore_CloseTwice(t *testing.T) {
	st, err := NewBadgerStore(t.TempDir(), time.Now, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, st.Close())
	assert.NotPanics(t, func() {
		assert.NoError(t, st.Close())
	})
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerStore("", time.Now, zap.NewNop())
	assert.Error(t, err)
}
