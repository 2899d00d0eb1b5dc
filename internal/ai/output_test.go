package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/memory"
)

type testBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
}

func TestParseEntityStripsFences(t *testing.T) {
	book, err := ParseEntity[testBook]("```json\n{\"title\":\"Dune\",\"author\":\"Frank Herbert\",\"year\":1965}\n```")
	if err != nil {
		t.Fatalf("ParseEntity() error = %v", err)
	}
	if book.Title != "Dune" || book.Year != 1965 {
		t.Fatalf("unexpected book: %+v", book)
	}
}

func TestParseEntityEmpty(t *testing.T) {
	if _, err := ParseEntity[testBook]("  "); !errors.Is(err, ErrEmptyStructuredOutput) {
		t.Fatalf("expected ErrEmptyStructuredOutput, got %v", err)
	}
}

func TestParseMap(t *testing.T) {
	m, err := ParseMap("```\n{\"red\": 1, \"blue\": \"sky\"}\n```")
	if err != nil {
		t.Fatalf("ParseMap() error = %v", err)
	}
	if m["blue"] != "sky" || m["red"] != float64(1) {
		t.Fatalf("unexpected map: %+v", m)
	}
}

func TestFormatInstructionsIncludeSchema(t *testing.T) {
	format, err := FormatInstructions[[]testBook]()
	if err != nil {
		t.Fatalf("FormatInstructions() error = %v", err)
	}
	for _, want := range []string{`"array"`, `"title"`, `"year"`, "RFC8259"} {
		if !strings.Contains(format, want) {
			t.Fatalf("format missing %s:\n%s", want, format)
		}
	}
}

func TestEntityAppendsFormatAndParses(t *testing.T) {
	m := &fakeModel{replies: []*schema.Message{
		schema.AssistantMessage(`[{"title":"Dune","author":"Frank Herbert","year":1965}]`, nil),
	}}
	c := NewChatClient(m)
	books, err := Entity[[]testBook](context.Background(), c, &Request{Messages: []*schema.Message{schema.UserMessage("one sci-fi book")}})
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if len(books) != 1 || books[0].Author != "Frank Herbert" {
		t.Fatalf("unexpected books: %+v", books)
	}
	sent := m.lastCall()
	if !strings.Contains(sent[len(sent)-1].Content, "JSON Schema") {
		t.Fatalf("format instructions not appended: %q", sent[len(sent)-1].Content)
	}
}

func TestFormatAdvisorRunsInsideMemory(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewInMemoryChatMemory(20)
	m := &fakeModel{replies: []*schema.Message{schema.AssistantMessage(`{"title":"Dune","author":"Frank Herbert","year":1965}`, nil)}}
	c := NewChatClient(m, WithAdvisors(NewMessageMemoryAdvisor(mem)))

	book, err := Entity[testBook](ctx, c, &Request{
		ConversationID: "f1",
		Messages:       []*schema.Message{schema.UserMessage("one book")},
	})
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if book.Title != "Dune" {
		t.Fatalf("unexpected book: %+v", book)
	}
	if sent := m.lastCall(); !strings.HasPrefix(sent[0].Content, "one book\n") || !strings.Contains(sent[0].Content, `"title"`) {
		t.Fatalf("schema missing from model input: %q", sent[0].Content)
	}
	history, err := mem.Get(ctx, "f1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Content != "one book" {
		t.Fatalf("memory stored formatted prompt: %+v", history)
	}
}

func TestFormatAdvisorRenderError(t *testing.T) {
	boom := errors.New("template missing")
	c := NewChatClient(&fakeModel{})
	_, err := c.Call(context.Background(), &Request{
		Messages: []*schema.Message{schema.UserMessage("q")},
		Advisors: []Advisor{FormatAdvisor{Render: func(context.Context, string) (string, error) { return "", boom }}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
}
