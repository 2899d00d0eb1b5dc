package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-workshop/internal/model"
)

type DocumentChunkRepository struct {
	db *gorm.DB
}

func NewDocumentChunkRepository(db *gorm.DB) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: db}
}

// CreateBatch inserts all chunks in one transaction.
func (r *DocumentChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&chunks, 100).Error
	})
	if err != nil {
		return fmt.Errorf("create document chunks batch failed: %w", err)
	}
	return nil
}

func (r *DocumentChunkRepository) ListAll(ctx context.Context) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list document chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *DocumentChunkRepository) DistinctHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("document_hash <> ''").
		Distinct().
		Pluck("document_hash", &hashes).Error; err != nil {
		return nil, fmt.Errorf("list document hashes failed: %w", err)
	}
	return hashes, nil
}

func (r *DocumentChunkRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count document chunks failed: %w", err)
	}
	return count, nil
}
