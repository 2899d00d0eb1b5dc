package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/prompt"
	"gopherai-workshop/internal/vectorstore"
)

// QuestionAnswerAdvisor retrieves documents similar to the user text and
// appends them, with answering instructions, to the last user message.
type QuestionAnswerAdvisor struct {
	store     vectorstore.VectorStore
	topK      int
	threshold float64
}

func NewQuestionAnswerAdvisor(store vectorstore.VectorStore, topK int, threshold float64) *QuestionAnswerAdvisor {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	return &QuestionAnswerAdvisor{store: store, topK: topK, threshold: threshold}
}

func (a *QuestionAnswerAdvisor) Name() string { return "QuestionAnswerAdvisor" }
func (a *QuestionAnswerAdvisor) Order() int   { return 0 }

func (a *QuestionAnswerAdvisor) AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error) {
	augmented, err := a.augment(ctx, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, augmented)
}

func (a *QuestionAnswerAdvisor) AdviseStream(ctx context.Context, req *Request, next StreamNext) (*schema.StreamReader[*schema.Message], error) {
	augmented, err := a.augment(ctx, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, augmented)
}

func (a *QuestionAnswerAdvisor) augment(ctx context.Context, req *Request) (*Request, error) {
	user := req.LastUserMessage()
	if user == nil {
		return req, nil
	}

	docs, err := a.store.SimilaritySearch(ctx, vectorstore.SearchRequest{
		Query:     user.Content,
		TopK:      a.topK,
		Threshold: a.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("question answer retrieval failed: %w", err)
	}

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Content)
	}
	instructions, err := prompt.Render(ctx, prompt.QuestionAnswer, map[string]any{
		"question_answer_context": strings.Join(texts, "\n"),
	})
	if err != nil {
		return nil, err
	}

	out := req.clone()
	for i := len(out.Messages) - 1; i >= 0; i-- {
		if out.Messages[i] == user {
			augmented := *user
			augmented.Content = user.Content + "\n\n" + instructions
			out.Messages[i] = &augmented
			break
		}
	}
	return out, nil
}
