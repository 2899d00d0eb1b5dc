package prompt

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestRenderFillsPlaceholders(t *testing.T) {
	got, err := Render(context.Background(), DevAssistant, map[string]any{"programming_language": "Go"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "questions related to Go.") {
		t.Fatalf("placeholder not filled: %q", got)
	}
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render(context.Background(), DocAssistant, map[string]any{"input": "q"})
	if !errors.Is(err, ErrMissingVariable) {
		t.Fatalf("expected ErrMissingVariable, got %v", err)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render(context.Background(), "nope", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestValuesAreNotReformatted(t *testing.T) {
	got, err := Render(context.Background(), MapOutput, map[string]any{
		"input":  "list colors",
		"format": `Return JSON like {"red": 1}`,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, `{"red": 1}`) {
		t.Fatalf("value was altered: %q", got)
	}
}

func TestEveryTemplateRenders(t *testing.T) {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".st")
		t.Run(name, func(t *testing.T) {
			text, err := Text(name)
			if err != nil {
				t.Fatal(err)
			}
			vars := map[string]any{}
			for _, v := range Variables(text) {
				vars[v] = "x"
			}
			if _, err := Render(context.Background(), name, vars); err != nil {
				t.Fatalf("Render(%s) error = %v", name, err)
			}
		})
	}
}

func TestMessageHelpers(t *testing.T) {
	sys, err := SystemMessage(context.Background(), FactChecking, nil)
	if err != nil || sys.Role != schema.System || !strings.Contains(sys.Content, "research assistant") {
		t.Fatalf("SystemMessage() = %+v, %v", sys, err)
	}
	user, err := UserMessage(context.Background(), Joke, map[string]any{"topic": "gophers"})
	if err != nil || user.Role != schema.User || user.Content != "Tell me a joke about gophers" {
		t.Fatalf("UserMessage() = %+v, %v", user, err)
	}
}

func TestVariables(t *testing.T) {
	got := Variables("a {x} b {{y}} c {z} {x}")
	if strings.Join(got, ",") != "x,z" {
		t.Fatalf("Variables() = %v", got)
	}
}
