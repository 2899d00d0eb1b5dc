// Package vectorstore stores embedded document chunks and answers top-K
// similarity queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

const (
	MetaSource       = "source"
	MetaFileType     = "file_type"
	MetaIndexedDate  = "indexed_date"
	MetaDocumentHash = "document_hash"

	DefaultTopK = 4
)

var ErrEmptyQuery = errors.New("similarity query is empty")

type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

func (d Document) MetaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	v, ok := d.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// FormattedContent renders metadata lines followed by the text.
func (d Document) FormattedContent() string {
	if len(d.Metadata) == 0 {
		return d.Content
	}
	keys := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, d.Metadata[k])
	}
	b.WriteString("\n")
	b.WriteString(d.Content)
	return b.String()
}

type SearchRequest struct {
	Query     string
	TopK      int
	Threshold float64
}

type VectorStore interface {
	// Add embeds and stores every document, or none of them.
	Add(ctx context.Context, docs []Document) error
	SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error)
	// DocumentHashes returns the distinct document_hash values already stored.
	DocumentHashes(ctx context.Context) (map[string]struct{}, error)
	Count(ctx context.Context) (int64, error)
}

func embedTexts(ctx context.Context, embedder embedding.Embedder, texts []string) ([][]float32, error) {
	vectors, err := embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(texts))
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding for document %d", i)
		}
		out[i] = toFloat32(vec)
	}
	return out, nil
}

func embedQuery(ctx context.Context, embedder embedding.Embedder, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	vectors, err := embedTexts(ctx, embedder, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scored struct {
	doc Document
	vec []float32
}

// rank scores candidates against query and keeps the best topK above threshold.
func rank(candidates []scored, query []float32, topK int, threshold float64) []Document {
	if topK <= 0 {
		topK = DefaultTopK
	}
	out := make([]Document, 0, len(candidates))
	for _, c := range candidates {
		doc := c.doc
		doc.Score = cosineSimilarity(query, c.vec)
		if doc.Score < threshold {
			continue
		}
		out = append(out, doc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func normalizeSearch(req SearchRequest) SearchRequest {
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	return req
}
