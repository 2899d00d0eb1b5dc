package vectorstore

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const pgTable = "vector_store"

type pgRow struct {
	ID        string            `gorm:"primaryKey;type:uuid"`
	Content   string            `gorm:"type:text"`
	Metadata  datatypes.JSONMap `gorm:"type:json"`
	Embedding pgvector.Vector
}

func (pgRow) TableName() string { return pgTable }

type pgHit struct {
	ID       string
	Content  string
	Metadata datatypes.JSONMap
	Distance float64
}

// PGVectorStore keeps chunks in a postgres vector_store table and lets
// pgvector rank them by cosine distance.
type PGVectorStore struct {
	db         *gorm.DB
	embedder   embedding.Embedder
	dimensions int
}

func NewPGVectorStore(db *gorm.DB, embedder embedding.Embedder, dimensions int) *PGVectorStore {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &PGVectorStore{db: db, embedder: embedder, dimensions: dimensions}
}

// Init creates the extension, table and HNSW index when missing.
func (s *PGVectorStore) Init(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id uuid PRIMARY KEY, content text, metadata json, embedding vector(%d))", pgTable, s.dimensions),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)", pgTable, pgTable),
	}
	for _, stmt := range stmts {
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("init pgvector store failed: %w", err)
		}
	}
	return nil
}

func (s *PGVectorStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := embedTexts(ctx, s.embedder, texts)
	if err != nil {
		return err
	}

	rows := make([]pgRow, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta := datatypes.JSONMap{}
		for k, v := range d.Metadata {
			meta[k] = v
		}
		rows[i] = pgRow{
			ID:        id,
			Content:   d.Content,
			Metadata:  meta,
			Embedding: pgvector.NewVector(vectors[i]),
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert vector rows failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error) {
	req = normalizeSearch(req)
	query, err := embedQuery(ctx, s.embedder, req.Query)
	if err != nil {
		return nil, err
	}

	var hits []pgHit
	if err := s.db.WithContext(ctx).
		Table(pgTable).
		Select("id, content, metadata, embedding <=> ? AS distance", pgvector.NewVector(query)).
		Order("distance").
		Limit(req.TopK).
		Scan(&hits).Error; err != nil {
		return nil, fmt.Errorf("pgvector similarity search failed: %w", err)
	}

	return hitsAbove(hits, req.Threshold), nil
}

// hitsAbove turns cosine distances into similarity scores and drops hits
// scoring below threshold. Hits keep the database order.
func hitsAbove(hits []pgHit, threshold float64) []Document {
	out := make([]Document, 0, len(hits))
	for _, h := range hits {
		score := 1 - h.Distance
		if score < threshold {
			continue
		}
		out = append(out, Document{ID: h.ID, Content: h.Content, Metadata: map[string]any(h.Metadata), Score: score})
	}
	return out
}

func (s *PGVectorStore) DocumentHashes(ctx context.Context) (map[string]struct{}, error) {
	var hashes []string
	if err := s.db.WithContext(ctx).Raw(
		"SELECT DISTINCT metadata->>'document_hash' AS hash FROM " + pgTable +
			" WHERE metadata->>'document_hash' IS NOT NULL",
	).Scan(&hashes).Error; err != nil {
		return nil, fmt.Errorf("query document hashes failed: %w", err)
	}
	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[h] = struct{}{}
	}
	return out, nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Table(pgTable).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count vector rows failed: %w", err)
	}
	return count, nil
}

var _ VectorStore = (*PGVectorStore)(nil)
