package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-workshop/internal/model"
)

func newRedisMemory(t *testing.T, window int) (*RedisChatMemory, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChatMemory(client, window, time.Hour), srv
}

func exerciseWindow(t *testing.T, mem ChatMemory) {
	t.Helper()
	ctx := context.Background()

	for i, text := range []string{"one", "two", "three", "four"} {
		msg := schema.UserMessage(text)
		if i%2 == 1 {
			msg = schema.AssistantMessage(text, nil)
		}
		if err := mem.Add(ctx, "conv", msg); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	got, err := mem.Get(ctx, "conv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("window kept %d messages, want 3", len(got))
	}
	if got[0].Content != "two" || got[0].Role != schema.Assistant || got[2].Content != "four" {
		t.Errorf("unexpected window contents: %v", got)
	}

	other, err := mem.Get(ctx, "other")
	if err != nil || len(other) != 0 {
		t.Errorf("other conversation = %v, %v; want empty", other, err)
	}

	if err := mem.Clear(ctx, "conv"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, _ = mem.Get(ctx, "conv")
	if len(got) != 0 {
		t.Errorf("after Clear() got %d messages", len(got))
	}
}

func TestInMemoryChatMemoryWindow(t *testing.T) {
	exerciseWindow(t, NewInMemoryChatMemory(3))
}

func TestRedisChatMemoryWindow(t *testing.T) {
	mem, _ := newRedisMemory(t, 3)
	exerciseWindow(t, mem)
}

func TestRedisChatMemorySetsTTLAndDefaultID(t *testing.T) {
	mem, srv := newRedisMemory(t, 5)
	if err := mem.Add(context.Background(), "  ", schema.UserMessage("hi")); err != nil {
		t.Fatal(err)
	}
	if !srv.Exists("chat:memory:default") {
		t.Fatal("blank conversation id should map to the default key")
	}
	if ttl := srv.TTL("chat:memory:default"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}

func TestToolTrafficIsNotStored(t *testing.T) {
	mem := NewInMemoryChatMemory(10)
	call := schema.AssistantMessage("", []schema.ToolCall{{ID: "1", Function: schema.FunctionCall{Name: "power"}}})
	err := mem.Add(context.Background(), "c", schema.UserMessage("q"), call, schema.ToolMessage("4", "1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := mem.Get(context.Background(), "c")
	if len(got) != 1 || got[0].Content != "q" {
		t.Errorf("stored %v, want only the user message", got)
	}
}

type recordingPublisher struct {
	msgs []model.ConversationMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg model.ConversationMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestArchivingChatMemoryPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	mem := NewArchivingChatMemory(NewInMemoryChatMemory(10), pub)

	err := mem.Add(context.Background(), "user-7", schema.UserMessage("hello"), schema.AssistantMessage("hi", nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	if pub.msgs[0].ConversationID != "user-7" || pub.msgs[0].Role != "user" || pub.msgs[1].Role != "assistant" {
		t.Errorf("published %+v", pub.msgs)
	}

	got, _ := mem.Get(context.Background(), "user-7")
	if len(got) != 2 {
		t.Errorf("inner memory has %d messages, want 2", len(got))
	}
}

func TestArchivingChatMemoryIgnoresPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	mem := NewArchivingChatMemory(NewInMemoryChatMemory(10), pub)
	if err := mem.Add(context.Background(), "c", schema.UserMessage("x")); err != nil {
		t.Fatalf("publish failure should not fail Add: %v", err)
	}
}
