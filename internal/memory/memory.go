// Package memory keeps a sliding window of chat messages per conversation.
package memory

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const (
	DefaultConversationID = "default"
	DefaultWindow         = 20
)

type ChatMemory interface {
	Get(ctx context.Context, conversationID string) ([]*schema.Message, error)
	Add(ctx context.Context, conversationID string, messages ...*schema.Message) error
	Clear(ctx context.Context, conversationID string) error
}

// storedMessage is the persisted shape; tool calls and media are not kept.
type storedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toStored(msg *schema.Message) storedMessage {
	return storedMessage{Role: string(msg.Role), Content: msg.Content}
}

func (m storedMessage) message() *schema.Message {
	return &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content}
}

func normalizeID(conversationID string) string {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return DefaultConversationID
	}
	return id
}

// keepable drops nil messages and tool traffic, which only makes sense inside one call.
func keepable(messages []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Role == schema.Tool || len(msg.ToolCalls) > 0 {
			continue
		}
		out = append(out, msg)
	}
	return out
}
