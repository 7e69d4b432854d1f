package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamForwarder copies every event it handles onto a Redis stream so
// other processes can follow costing changes
type RedisStreamForwarder struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisStreamForwarder creates a forwarder trimming the stream to roughly maxLen entries
func NewRedisStreamForwarder(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamForwarder {
	return &RedisStreamForwarder{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 5 * time.Second,
	}
}

func (f *RedisStreamForwarder) CanHandle(string) bool {
	return true
}

func (f *RedisStreamForwarder) Handle(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	return f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: f.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    event.Type(),
			"stream":  event.StreamID(),
			"payload": string(payload),
		},
	}).Err()
}
