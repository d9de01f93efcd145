// Package redisstore persists conversations in Redis. Each conversation is
// a JSON string value; a sorted set scored by creation time indexes them.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
)

// DefaultKeyPrefix namespaces all keys.
const DefaultKeyPrefix = "roundtable:"

// Options configures a Backend.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Logger    logging.Logger
}

// Backend stores conversations in Redis.
type Backend struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    logging.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, optFns ...func(o *Options)) (*Backend, error) {
	opts := Options{Addr: "localhost:6379"}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, func(o *Options) {
		o.KeyPrefix = opts.KeyPrefix
		o.Logger = opts.Logger
	}), nil
}

// NewFromClient wraps an existing client. Connection options are ignored.
func NewFromClient(client redis.UniversalClient, optFns ...func(o *Options)) *Backend {
	opts := Options{KeyPrefix: DefaultKeyPrefix, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Backend{client: client, keyPrefix: opts.KeyPrefix + "conversation:", logger: opts.Logger}
}

func (b *Backend) dataKey(id string) string { return b.keyPrefix + "data:" + id }

func (b *Backend) indexKey() string { return b.keyPrefix + "all" }

// Get loads a conversation.
func (b *Backend) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	data, err := b.client.Get(ctx, b.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.ConversationRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.ConversationRecord{}, fmt.Errorf("get conversation: %w", err)
	}

	var rec core.ConversationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.ConversationRecord{}, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return rec, nil
}

// Put stores rec and indexes it by creation time.
func (b *Backend) Put(ctx context.Context, rec core.ConversationRecord) error {
	if rec.Messages == nil {
		rec.Messages = core.Transcript{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.dataKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, b.indexKey(), redis.Z{Score: float64(rec.CreatedAt.Unix()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put conversation: %w", err)
	}
	return nil
}

// List loads every indexed conversation, newest first. Dangling index
// entries and undecodable values are skipped.
func (b *Backend) List(ctx context.Context) ([]core.ConversationRecord, error) {
	ids, err := b.client.ZRevRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]core.ConversationRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := b.Get(ctx, id)
		if err != nil {
			b.logger.Warn("skipping unreadable conversation", "component", "session.redis", "conversation_id", id, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the client.
func (b *Backend) Close() error { return b.client.Close() }
