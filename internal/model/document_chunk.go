package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DocumentChunk stores an indexed piece of a source document and its embedding.
// Embedding is a JSON array of float32 so the table works on any SQL driver.
type DocumentChunk struct {
	ID           string            `gorm:"primaryKey;size:36" json:"id"`
	Content      string            `gorm:"type:text;not null" json:"content"`
	Source       string            `gorm:"size:512;index" json:"source"`
	FileType     string            `gorm:"size:16" json:"file_type"`
	DocumentHash string            `gorm:"size:64;index" json:"document_hash"`
	IndexedAt    time.Time         `json:"indexed_at"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	Embedding    string            `gorm:"type:text" json:"-"`
	CreatedAt    time.Time         `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *DocumentChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

func (c *DocumentChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
