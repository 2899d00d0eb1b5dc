// Package prompt holds the embedded prompt templates and renders them with
// eino f-string formatting.
package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.st
var templates embed.FS

const (
	DevAssistant        = "dev-assistant"
	FewShot             = "few-shot"
	FewShotExamples     = "few-shot-examples"
	MultiStepOne        = "multi-step-one"
	MultiStepTwo        = "multi-step-two"
	TravelSystem        = "travel-system"
	TravelPrompt        = "travel-prompt"
	Summary             = "summary-prompt"
	DocAssistant        = "doc-assistant"
	DetailedResponse    = "detailed-response"
	InjectionCheck      = "injection-check"
	ConversationSummary = "conversation-summary"
	FactChecking        = "fact-checking"
	InputValidation     = "input-validation"
	BlogPost            = "blog-post"
	BlogPostRequest     = "blog-post-request"
	Joke                = "joke"
	MapOutput           = "map-output"
	QuestionAnswer      = "question-answer"
)

var (
	ErrTemplateNotFound = errors.New("prompt template not found")
	ErrMissingVariable  = errors.New("prompt variable missing")
)

// placeholder matches {name} but not the escaped {{name}}.
var placeholder = regexp.MustCompile(`(^|[^{])\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Text returns the raw template text.
func Text(name string) (string, error) {
	data, err := templates.ReadFile("templates/" + name + ".st")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Variables lists the placeholders used by a template string.
func Variables(tmpl string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[2]] {
			seen[m[2]] = true
			out = append(out, m[2])
		}
	}
	return out
}

// Render formats the named template.
func Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	tmpl, err := Text(name)
	if err != nil {
		return "", err
	}
	return RenderString(ctx, tmpl, vars)
}

// RenderString formats an inline template. Every placeholder must have a value.
func RenderString(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	for _, v := range Variables(tmpl) {
		if _, ok := vars[v]; !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, v)
		}
	}

	msgs, err := prompt.FromMessages(schema.FString, schema.UserMessage(tmpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt failed: %w", err)
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[0].Content, nil
}

// SystemMessage renders the named template as a system message.
func SystemMessage(ctx context.Context, name string, vars map[string]any) (*schema.Message, error) {
	text, err := Render(ctx, name, vars)
	if err != nil {
		return nil, err
	}
	return schema.SystemMessage(text), nil
}

// UserMessage renders the named template as a user message.
func UserMessage(ctx context.Context, name string, vars map[string]any) (*schema.Message, error) {
	text, err := Render(ctx, name, vars)
	if err != nil {
		return nil, err
	}
	return schema.UserMessage(text), nil
}
