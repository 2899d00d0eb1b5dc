package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-workshop/internal/model"
)

type ConversationMessageRepository struct {
	db *gorm.DB
}

func NewConversationMessageRepository(db *gorm.DB) *ConversationMessageRepository {
	return &ConversationMessageRepository{db: db}
}

func (r *ConversationMessageRepository) Create(ctx context.Context, message *model.ConversationMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create conversation message failed: %w", err)
	}
	return nil
}

// ListByConversationID returns the oldest-first transcript, capped at limit.
func (r *ConversationMessageRepository) ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.ConversationMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.ConversationMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list conversation messages failed: %w", err)
	}
	return messages, nil
}

func (r *ConversationMessageRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&model.ConversationMessage{}).Error; err != nil {
		return fmt.Errorf("delete conversation messages failed: %w", err)
	}
	return nil
}
