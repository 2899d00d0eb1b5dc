package memory

import (
	"context"
	"log"
	"time"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/model"
)

type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.ConversationMessage) error
}

// ArchivingChatMemory forwards every added message to a transcript publisher.
// Publish failures are logged; the window write decides the result.
type ArchivingChatMemory struct {
	ChatMemory
	publisher TranscriptPublisher
	now       func() time.Time
}

func NewArchivingChatMemory(inner ChatMemory, publisher TranscriptPublisher) *ArchivingChatMemory {
	return &ArchivingChatMemory{
		ChatMemory: inner,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (m *ArchivingChatMemory) Add(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	if err := m.ChatMemory.Add(ctx, conversationID, messages...); err != nil {
		return err
	}
	if m.publisher == nil {
		return nil
	}

	id := normalizeID(conversationID)
	for _, msg := range keepable(messages) {
		record := model.ConversationMessage{
			ConversationID: id,
			Role:           string(msg.Role),
			Content:        msg.Content,
			CreatedAt:      m.now(),
		}
		if err := m.publisher.Publish(ctx, record); err != nil {
			log.Printf("archive conversation message failed: conversation=%s err=%v", id, err)
		}
	}
	return nil
}
