package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
)

type storeFile struct {
	Version   string        `json:"version"`
	UpdatedAt string        `json:"updated_at"`
	Documents []storedChunk `json:"documents"`
}

type storedChunk struct {
	Document
	Vector []float32 `json:"vector"`
}

// MemoryStore is an in-process store that can be saved to and loaded from a
// JSON file.
type MemoryStore struct {
	mu       sync.RWMutex
	filePath string
	embedder embedding.Embedder
	chunks   []storedChunk
}

func NewMemoryStore(filePath string, embedder embedding.Embedder) *MemoryStore {
	return &MemoryStore{filePath: filePath, embedder: embedder}
}

func (s *MemoryStore) FilePath() string {
	return s.filePath
}

// Load replaces the contents with the saved file. It reports false when the
// file does not exist.
func (s *MemoryStore) Load() (bool, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read vector store file failed: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return false, fmt.Errorf("parse vector store file failed: %w", err)
	}

	s.mu.Lock()
	s.chunks = f.Documents
	s.mu.Unlock()
	return true, nil
}

func (s *MemoryStore) Save() error {
	s.mu.RLock()
	f := storeFile{
		Version:   "1",
		UpdatedAt: time.Now().Format(time.RFC3339),
		Documents: s.chunks,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal vector store failed: %w", err)
	}

	if dir := filepath.Dir(s.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vector store dir failed: %w", err)
		}
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write vector store file failed: %w", err)
	}
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, docs []Document) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.Score = 0
		s.chunks = append(s.chunks, storedChunk{Document: d, Vector: vectors[i]})
	}
	return nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error) {
	req = normalizeSearch(req)
	query, err := embedQuery(ctx, s.embedder, req.Query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]scored, len(s.chunks))
	for i, c := range s.chunks {
		candidates[i] = scored{doc: c.Document, vec: c.Vector}
	}
	s.mu.RUnlock()

	return rank(candidates, query, req.TopK, req.Threshold), nil
}

func (s *MemoryStore) DocumentHashes(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for _, c := range s.chunks {
		if h := c.MetaString(MetaDocumentHash); h != "" {
			out[h] = struct{}{}
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

var _ VectorStore = (*MemoryStore)(nil)
