package broker

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisStreamHandle_SendFailure(t *testing.T) {
	h := NewRedisStreamHandle(unreachableClient(), WithMaxLen(1000))
	defer h.Close()

	err := h.Send(context.Background(), Batch{{Topic: "topic-a", Messages: []string{"x", "y"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis xadd 2 messages")
	assert.Equal(t, int64(1000), h.maxLen)
}

func TestRedisStreamHandle_EmptyBatch(t *testing.T) {
	h := NewRedisStreamHandle(unreachableClient())
	defer h.Close()
	assert.NoError(t, h.Send(context.Background(), Batch{{Topic: "topic-a"}}))
}

func TestNewRedisStreamHandle_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisStreamHandle(nil) })
}
