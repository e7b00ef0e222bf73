package broker

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisPayloadField = "payload"

var _ Handle = &RedisStreamHandle{}

// RedisStreamHandle appends every payload to the stream named after its
// topic with one pipelined XADD per payload.
type RedisStreamHandle struct {
	client *redis.Client
	maxLen int64
}

type RedisOption func(*RedisStreamHandle)

// WithMaxLen caps each stream approximately (XADD MAXLEN ~).
func WithMaxLen(n int64) RedisOption {
	return func(h *RedisStreamHandle) {
		h.maxLen = n
	}
}

func NewRedisStreamHandle(client *redis.Client, opts ...RedisOption) *RedisStreamHandle {
	if client == nil {
		panic("redis client is nil")
	}
	h := &RedisStreamHandle{client: client}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RedisStreamHandle) Send(ctx context.Context, batch Batch) error {
	if batch.Size() == 0 {
		return nil
	}
	pipe := h.client.Pipeline()
	for _, e := range batch {
		for _, m := range e.Messages {
			args := &redis.XAddArgs{
				Stream: e.Topic,
				Values: map[string]interface{}{redisPayloadField: m},
			}
			if h.maxLen > 0 {
				args.MaxLen = h.maxLen
				args.Approx = true
			}
			pipe.XAdd(ctx, args)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis xadd %d messages: %w", batch.Size(), err)
	}
	return nil
}

func (h *RedisStreamHandle) Close() error {
	return h.client.Close()
}
