package app

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/indexer"
	"gopherai-workshop/internal/prompt"
	"gopherai-workshop/internal/vectorstore"
)

const trainingsTopK = 5

type Reindexer interface {
	Run(ctx context.Context) (*indexer.Report, error)
}

type RAGService struct {
	chat    *ai.ChatClient
	docs    *ai.ChatClient
	store   vectorstore.VectorStore
	indexer Reindexer
}

// NewRAGService takes a plain client for trainings and a client carrying the
// question answer advisor for the documentation endpoints.
func NewRAGService(chat, docs *ai.ChatClient, store vectorstore.VectorStore, idx Reindexer) *RAGService {
	return &RAGService{chat: chat, docs: docs, store: store, indexer: idx}
}

// Trainings answers from the five most similar chunks placed in the prompt.
func (s *RAGService) Trainings(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	docs, err := s.store.SimilaritySearch(ctx, vectorstore.SearchRequest{Query: message, TopK: trainingsTopK})
	if err != nil {
		return "", modelErr(err)
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.FormattedContent())
	}

	user, err := prompt.UserMessage(ctx, prompt.DocAssistant, map[string]any{
		"input":     message,
		"documents": strings.Join(texts, "\n"),
	})
	if err != nil {
		return "", err
	}
	return callContent(ctx, s.chat, &ai.Request{Messages: []*schema.Message{user}})
}

func (s *RAGService) Docs(ctx context.Context, message string) (string, error) {
	req, err := s.docsRequest(ctx, message)
	if err != nil {
		return "", err
	}
	return callContent(ctx, s.docs, req)
}

func (s *RAGService) DocsStream(ctx context.Context, message string) (*schema.StreamReader[string], error) {
	req, err := s.docsRequest(ctx, message)
	if err != nil {
		return nil, err
	}
	sr, err := s.docs.Stream(ctx, req)
	if err != nil {
		return nil, modelErr(err)
	}
	return contentStream(sr), nil
}

func (s *RAGService) docsRequest(ctx context.Context, message string) (*ai.Request, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrInvalidInput
	}
	user, err := prompt.UserMessage(ctx, prompt.DetailedResponse, map[string]any{"userQuestion": message})
	if err != nil {
		return nil, err
	}
	return &ai.Request{Messages: []*schema.Message{user}}, nil
}

// Search exposes raw retrieval for debugging.
func (s *RAGService) Search(ctx context.Context, query string, topK int) ([]vectorstore.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	docs, err := s.store.SimilaritySearch(ctx, vectorstore.SearchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, modelErr(err)
	}
	return docs, nil
}

func (s *RAGService) Reindex(ctx context.Context) (*indexer.Report, error) {
	return s.indexer.Run(ctx)
}

func (s *RAGService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
