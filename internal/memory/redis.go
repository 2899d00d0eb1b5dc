package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	redisv9 "github.com/redis/go-redis/v9"
)

// RedisChatMemory stores each conversation as a capped redis list.
type RedisChatMemory struct {
	client *redisv9.Client
	window int
	ttl    time.Duration
}

func NewRedisChatMemory(client *redisv9.Client, window int, ttl time.Duration) *RedisChatMemory {
	if window <= 0 {
		window = DefaultWindow
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisChatMemory{
		client: client,
		window: window,
		ttl:    ttl,
	}
}

func (m *RedisChatMemory) Get(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	raw, err := m.client.LRange(ctx, m.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get memory failed: %w", err)
	}

	out := make([]*schema.Message, 0, len(raw))
	for _, item := range raw {
		var s storedMessage
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("unmarshal memory message failed: %w", err)
		}
		out = append(out, s.message())
	}
	return out, nil
}

func (m *RedisChatMemory) Add(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	messages = keepable(messages)
	if len(messages) == 0 {
		return nil
	}

	payloads := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		b, err := json.Marshal(toStored(msg))
		if err != nil {
			return fmt.Errorf("marshal memory message failed: %w", err)
		}
		payloads = append(payloads, b)
	}

	key := m.key(conversationID)
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, key, payloads...)
	pipe.LTrim(ctx, key, int64(-m.window), -1)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis add memory failed: %w", err)
	}
	return nil
}

func (m *RedisChatMemory) Clear(ctx context.Context, conversationID string) error {
	if err := m.client.Del(ctx, m.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis clear memory failed: %w", err)
	}
	return nil
}

func (m *RedisChatMemory) key(conversationID string) string {
	return "chat:memory:" + normalizeID(conversationID)
}
