package vectorstore

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gopherai-workshop/internal/model"
)

type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error
	ListAll(ctx context.Context) ([]model.DocumentChunk, error)
	DistinctHashes(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// SQLStore keeps embeddings as JSON in the relational DB and ranks in process.
// It suits small corpora on drivers without a vector type.
type SQLStore struct {
	repo     ChunkRepository
	embedder embedding.Embedder
}

func NewSQLStore(repo ChunkRepository, embedder embedding.Embedder) *SQLStore {
	return &SQLStore{repo: repo, embedder: embedder}
}

func (s *SQLStore) Add(ctx context.Context, docs []Document) error {
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

	chunks := make([]model.DocumentChunk, len(docs))
	for i, d := range docs {
		chunks[i] = chunkFromDocument(d)
		chunks[i].SetEmbedding(vectors[i])
	}
	return s.repo.CreateBatch(ctx, chunks)
}

func (s *SQLStore) SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error) {
	req = normalizeSearch(req)
	query, err := embedQuery(ctx, s.embedder, req.Query)
	if err != nil {
		return nil, err
	}

	chunks, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]scored, len(chunks))
	for i := range chunks {
		candidates[i] = scored{doc: documentFromChunk(chunks[i]), vec: chunks[i].EmbeddingVector()}
	}
	return rank(candidates, query, req.TopK, req.Threshold), nil
}

func (s *SQLStore) DocumentHashes(ctx context.Context) (map[string]struct{}, error) {
	hashes, err := s.repo.DistinctHashes(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[h] = struct{}{}
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func chunkFromDocument(d Document) model.DocumentChunk {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	indexedAt := time.Now()
	if raw := d.MetaString(MetaIndexedDate); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			indexedAt = parsed
		}
	}
	meta := datatypes.JSONMap{}
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return model.DocumentChunk{
		ID:           id,
		Content:      d.Content,
		Source:       d.MetaString(MetaSource),
		FileType:     d.MetaString(MetaFileType),
		DocumentHash: d.MetaString(MetaDocumentHash),
		IndexedAt:    indexedAt,
		Metadata:     meta,
	}
}

func documentFromChunk(c model.DocumentChunk) Document {
	meta := make(map[string]any, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	if _, ok := meta[MetaSource]; !ok && c.Source != "" {
		meta[MetaSource] = c.Source
	}
	if _, ok := meta[MetaDocumentHash]; !ok && c.DocumentHash != "" {
		meta[MetaDocumentHash] = c.DocumentHash
	}
	return Document{ID: c.ID, Content: c.Content, Metadata: meta}
}

var _ VectorStore = (*SQLStore)(nil)
