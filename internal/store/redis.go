package store

import (
	"context"
	"encoding/json"
	"fmt"

	"guestbook/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisMessagesKey = "guestbook:messages"
	redisOrderKey    = "guestbook:order"
	redisSeqKey      = "guestbook:seq"
)

// RedisStore keeps records in a hash and their insertion order in a sorted
// set scored by an INCR counter, so wall-clock jumps do not reorder
// messages. ZADD NX leaves a re-used key at its first position, the same
// way the file document behaves.
type RedisStore struct {
	rdb    *redis.Client
	clock  Clock
	logger *zap.Logger
}

func NewRedisStore(addr string, clock Clock, logger *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb, clock: clock, logger: logger}, nil
}

func (s *RedisStore) Append(ctx context.Context, username, body string) (model.Message, error) {
	msg := model.NewMessage(s.clock(), username, body)

	data, err := json.Marshal(msg)
	if err != nil {
		return msg, err
	}

	seq, err := s.rdb.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return msg, fmt.Errorf("redis append: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisMessagesKey, msg.Timestamp, data)
		pipe.ZAddNX(ctx, redisOrderKey, redis.Z{
			Score:  float64(seq),
			Member: msg.Timestamp,
		})
		return nil
	})
	if err != nil {
		return msg, fmt.Errorf("redis append: %w", err)
	}
	return msg, nil
}

func (s *RedisStore) Load(ctx context.Context) (*model.Document, error) {
	keys, err := s.rdb.ZRange(ctx, redisOrderKey, 0, -1).Result()
	if err != nil {
		return model.NewDocument(), fmt.Errorf("redis load order: %w", err)
	}

	doc := model.NewDocument()
	if len(keys) == 0 {
		return doc, nil
	}

	vals, err := s.rdb.HMGet(ctx, redisMessagesKey, keys...).Result()
	if err != nil {
		return model.NewDocument(), fmt.Errorf("redis load messages: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// ordered key without a record
			s.logger.Warn("Dangling message key", zap.String("timestamp", keys[i]))
			continue
		}

		var m model.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return model.NewDocument(), &CorruptError{Path: redisMessagesKey + "/" + keys[i], Err: err}
		}
		m.Timestamp = keys[i]
		doc.Put(m)
	}
	return doc, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
