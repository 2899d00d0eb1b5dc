package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/memory"
	"gopherai-workshop/internal/model"
)

func newChatService(t *testing.T, main, summary *scriptedModel) (*ChatService, memory.ChatMemory) {
	t.Helper()
	mem := memory.NewInMemoryChatMemory(20)
	tools, err := NewSearchTools(NewTimeTools())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewChatService(
		client(main, ai.WithAdvisors(ai.NewMessageMemoryAdvisor(mem))),
		client(main),
		client(summary),
		mem,
		nil,
		tools,
	)
	return svc, mem
}

func drain(t *testing.T, sr *schema.StreamReader[string]) string {
	t.Helper()
	defer sr.Close()
	var b strings.Builder
	for {
		s, err := sr.Recv()
		if err == io.EOF {
			return b.String()
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		b.WriteString(s)
	}
}

func TestChatRemembersConversation(t *testing.T) {
	main := newScriptedModel("Hello Luc", "You are Luc")
	svc, _ := newChatService(t, main, newScriptedModel())
	ctx := context.Background()

	if _, err := svc.Chat(ctx, "c1", "I am Luc"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Chat(ctx, "c1", "Who am I?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "You are Luc" {
		t.Fatalf("Chat() = %q", got)
	}
	if sent := main.call(1); len(sent) != 3 || sent[0].Content != "I am Luc" {
		t.Fatalf("history not replayed: %+v", sent)
	}

	history, err := svc.History(ctx, "c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[0].Role != string(schema.User) {
		t.Fatalf("unexpected history: %+v", history)
	}

	if err := svc.ClearMemory(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	history, _ = svc.History(ctx, "c1", 10)
	if len(history) != 0 {
		t.Fatalf("memory not cleared: %+v", history)
	}
}

func TestChatRejectsBlankMessage(t *testing.T) {
	svc, _ := newChatService(t, newScriptedModel(), newScriptedModel())
	if _, err := svc.Chat(context.Background(), "c1", " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestJokesDefaultTopic(t *testing.T) {
	main := newScriptedModel("joke")
	svc, _ := newChatService(t, main, newScriptedModel())
	if _, err := svc.Jokes(context.Background(), "c1", ""); err != nil {
		t.Fatal(err)
	}
	if lastContent(main.call(0)) != "Tell me a joke about software developer" {
		t.Fatalf("unexpected prompt: %q", lastContent(main.call(0)))
	}
}

func TestTouristAttractionsLowercases(t *testing.T) {
	svc, _ := newChatService(t, newScriptedModel("KRAKOW and GDANSK"), newScriptedModel())
	sr, err := svc.TouristAttractions(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, sr); got != "krakow and gdansk" {
		t.Fatalf("stream = %q", got)
	}
}

func TestDevAssistantUsesLanguageTemplate(t *testing.T) {
	main := newScriptedModel("use goroutines")
	svc, _ := newChatService(t, main, newScriptedModel())
	sr, err := svc.DevAssistant(context.Background(), "c2", "How do I run things concurrently?", "Go")
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, sr); got != "use goroutines" {
		t.Fatalf("stream = %q", got)
	}
	sent := main.call(0)
	if sent[0].Role != schema.System || !strings.Contains(sent[0].Content, "related to Go.") {
		t.Fatalf("system prompt not rendered: %+v", sent[0])
	}
}

func TestConversationSummarizesPriorTurns(t *testing.T) {
	main := newScriptedModel("Hi Anna", "You live in Oslo")
	summary := newScriptedModel("Anna lives in Oslo.")
	svc, _ := newChatService(t, main, summary)
	ctx := context.Background()

	if _, err := svc.Conversation(ctx, "c3", "I am Anna and I live in Oslo"); err != nil {
		t.Fatal(err)
	}
	if summary.callCount() != 0 {
		t.Fatal("summary model should not run for an empty conversation")
	}
	if main.call(0)[0].Content != "-" {
		t.Fatalf("expected placeholder summary, got %q", main.call(0)[0].Content)
	}

	got, err := svc.Conversation(ctx, "c3", "Where do I live?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "You live in Oslo" {
		t.Fatalf("Conversation() = %q", got)
	}
	if !strings.Contains(lastContent(summary.call(0)), "I am Anna and I live in Oslo") {
		t.Fatalf("summary input missing history: %q", lastContent(summary.call(0)))
	}
	if main.call(1)[0].Content != "Anna lives in Oslo." {
		t.Fatalf("summary not used as system message: %+v", main.call(1))
	}
}

func TestStructuredByType(t *testing.T) {
	main := newScriptedModel("```json\n{\"title\":\"Solaris\",\"author\":\"Stanislaw Lem\",\"year\":1961,\"summary\":\"An ocean planet.\"}\n```")
	svc, _ := newChatService(t, main, newScriptedModel())
	book, err := svc.StructuredByType(context.Background(), "c4", "Give me one Lem novel")
	if err != nil {
		t.Fatal(err)
	}
	if book.Title != "Solaris" || book.Year != 1961 {
		t.Fatalf("unexpected book: %+v", book)
	}
}

func TestStructuredOutputKeepsFormatOutOfMemory(t *testing.T) {
	main := newScriptedModel(
		"{\"title\":\"Solaris\",\"author\":\"Stanislaw Lem\",\"year\":1961}",
		"{\"red\":\"#ff0000\"}",
	)
	svc, mem := newChatService(t, main, newScriptedModel())
	ctx := context.Background()

	if _, err := svc.StructuredByType(ctx, "c6", "Give me one Lem novel"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StructuredAsMap(ctx, "c6", "Name one color"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(lastContent(main.call(0)), "JSON Schema") {
		t.Fatalf("schema not sent to the model: %q", lastContent(main.call(0)))
	}
	if !strings.Contains(lastContent(main.call(1)), "Name one color") || !strings.Contains(lastContent(main.call(1)), "RFC8259") {
		t.Fatalf("map format not sent to the model: %q", lastContent(main.call(1)))
	}

	history, err := mem.Get(ctx, "c6")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[0].Content != "Give me one Lem novel" || history[2].Content != "Name one color" {
		t.Fatalf("memory holds formatted prompts: %+v", history)
	}
	// Replayed history carries the raw question, not the earlier schema.
	if strings.Contains(main.call(1)[0].Content, "JSON Schema") {
		t.Fatalf("schema replayed from memory: %q", main.call(1)[0].Content)
	}
}

func TestStructuredAsMapBadOutputIsModelError(t *testing.T) {
	svc, _ := newChatService(t, newScriptedModel("not json"), newScriptedModel())
	if _, err := svc.StructuredAsMap(context.Background(), "c5", "colors"); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestSearchRunsReturnDirectTool(t *testing.T) {
	main := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{ID: "1", Function: schema.FunctionCall{Name: "getCurrentTime", Arguments: "{}"}}}),
	}}
	svc, _ := newChatService(t, main, newScriptedModel())
	got, err := svc.Search(context.Background(), "What time is it?", map[string]any{
		ToolContextUserID:   "7",
		ToolContextTimeZone: "Europe/Warsaw",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "[Europe/Warsaw]") {
		t.Fatalf("Search() = %q", got)
	}
}

type stubTranscripts struct {
	rows []model.ConversationMessage
}

func (s stubTranscripts) ListByConversationID(_ context.Context, id string, _ int) ([]model.ConversationMessage, error) {
	var out []model.ConversationMessage
	for _, r := range s.rows {
		if r.ConversationID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestHistoryPrefersArchive(t *testing.T) {
	mem := memory.NewInMemoryChatMemory(20)
	archive := stubTranscripts{rows: []model.ConversationMessage{{ConversationID: "c9", Role: "user", Content: "archived"}}}
	svc := NewChatService(client(newScriptedModel()), client(newScriptedModel()), client(newScriptedModel()), mem, archive, nil)
	got, err := svc.History(context.Background(), "c9", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "archived" {
		t.Fatalf("unexpected history: %+v", got)
	}
}
