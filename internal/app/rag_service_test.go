package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/indexer"
	"gopherai-workshop/internal/vectorstore"
)

type stubIndexer struct{ runs int }

func (s *stubIndexer) Run(context.Context) (*indexer.Report, error) {
	s.runs++
	return &indexer.Report{Indexed: 3}, nil
}

func TestTrainingsPutsDocumentsInPrompt(t *testing.T) {
	store := &stubStore{docs: []vectorstore.Document{
		{Content: "Go training, 3 days", Metadata: map[string]any{"filename": "trainings.json"}},
	}}
	m := newScriptedModel("There is a 3 day Go training")
	svc := NewRAGService(client(m), client(m), store, &stubIndexer{})

	got, err := svc.Trainings(context.Background(), "Is there a Go training?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "There is a 3 day Go training" {
		t.Fatalf("Trainings() = %q", got)
	}
	if store.last.TopK != 5 {
		t.Fatalf("topK = %d", store.last.TopK)
	}
	sent := lastContent(m.call(0))
	if !strings.Contains(sent, "filename: trainings.json") || !strings.Contains(sent, "Go training, 3 days") {
		t.Fatalf("documents missing from prompt: %q", sent)
	}
}

func TestDocsUsesQuestionAnswerAdvisor(t *testing.T) {
	store := &stubStore{docs: []vectorstore.Document{{Content: "Beans are singletons by default."}}}
	m := newScriptedModel("singleton")
	docs := client(m, ai.WithAdvisors(ai.NewQuestionAnswerAdvisor(store, 4, 0)))
	svc := NewRAGService(client(m), docs, store, &stubIndexer{})

	if _, err := svc.Docs(context.Background(), "What is the default bean scope?"); err != nil {
		t.Fatal(err)
	}
	sent := lastContent(m.call(0))
	if !strings.Contains(sent, "Question: What is the default bean scope?") || !strings.Contains(sent, "Beans are singletons by default.") {
		t.Fatalf("unexpected prompt: %q", sent)
	}
}

func TestDocsStream(t *testing.T) {
	store := &stubStore{}
	m := newScriptedModel("streamed answer")
	svc := NewRAGService(client(m), client(m, ai.WithAdvisors(ai.NewQuestionAnswerAdvisor(store, 4, 0))), store, &stubIndexer{})
	sr, err := svc.DocsStream(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, sr); got != "streamed answer" {
		t.Fatalf("stream = %q", got)
	}
}

func TestRAGSearchAndReindex(t *testing.T) {
	idx := &stubIndexer{}
	store := &stubStore{err: errors.New("embedder down")}
	svc := NewRAGService(client(newScriptedModel()), client(newScriptedModel()), store, idx)

	if _, err := svc.Search(context.Background(), "", 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Search(context.Background(), "beans", 3); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	report, err := svc.Reindex(context.Background())
	if err != nil || report.Indexed != 3 || idx.runs != 1 {
		t.Fatalf("Reindex() = %+v, %v", report, err)
	}
}
