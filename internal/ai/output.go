package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
)

var ErrEmptyStructuredOutput = errors.New("structured output is empty")

const entityFormat = `Your response should be in JSON format.
Do not include any explanations, only provide a RFC8259 compliant JSON response following this format without deviation.
Do not include markdown code blocks in your response.
Remove the ` + "```json" + ` markdown from the output.
Here is the JSON Schema instance your output must adhere to:
%s`

// MapFormat asks for a free-form JSON object.
const MapFormat = `Your response should be in JSON format.
The data structure for the JSON should be a single JSON object with string keys.
Do not include any explanations, only provide a RFC8259 compliant JSON response following this format without deviation.
Remove the ` + "```json" + ` markdown surrounding the output including the trailing "` + "```" + `".`

// FormatInstructions renders the output instructions for T from its JSON schema.
func FormatInstructions[T any]() (string, error) {
	var zero T
	reflector := &jsonschema.Reflector{DoNotReference: true}
	s := reflector.Reflect(zero)
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output schema failed: %w", err)
	}
	return fmt.Sprintf(entityFormat, string(raw)), nil
}

// FormatAdvisor rewrites the last user message right before the model sees
// it. It runs innermost, so memory and retrieval advisors keep the text the
// caller sent.
type FormatAdvisor struct {
	Render func(ctx context.Context, userText string) (string, error)
}

func (FormatAdvisor) Name() string { return "FormatAdvisor" }
func (FormatAdvisor) Order() int   { return math.MaxInt32 }

func (a FormatAdvisor) AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error) {
	formatted, err := a.apply(ctx, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, formatted)
}

func (a FormatAdvisor) AdviseStream(ctx context.Context, req *Request, next StreamNext) (*schema.StreamReader[*schema.Message], error) {
	formatted, err := a.apply(ctx, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, formatted)
}

func (a FormatAdvisor) apply(ctx context.Context, req *Request) (*Request, error) {
	if a.Render == nil {
		return req, nil
	}
	out := req.clone()
	for i := len(out.Messages) - 1; i >= 0; i-- {
		m := out.Messages[i]
		if m == nil || m.Role != schema.User {
			continue
		}
		text, err := a.Render(ctx, m.Content)
		if err != nil {
			return nil, fmt.Errorf("render output format failed: %w", err)
		}
		rewritten := *m
		rewritten.Content = text
		out.Messages[i] = &rewritten
		break
	}
	return out, nil
}

// Entity calls the client with the JSON schema of T appended to the last user
// message and decodes the reply into T.
func Entity[T any](ctx context.Context, c *ChatClient, req *Request) (T, error) {
	var zero T
	format, err := FormatInstructions[T]()
	if err != nil {
		return zero, err
	}

	withFormat := req.clone()
	withFormat.Advisors = append(append([]Advisor(nil), req.Advisors...), FormatAdvisor{
		Render: func(_ context.Context, user string) (string, error) {
			return user + "\n" + format, nil
		},
	})

	resp, err := c.Call(ctx, withFormat)
	if err != nil {
		return zero, err
	}
	return ParseEntity[T](resp.Content())
}

func ParseEntity[T any](text string) (T, error) {
	var out T
	cleaned := stripFences(text)
	if cleaned == "" {
		return out, ErrEmptyStructuredOutput
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("parse structured output failed: %w", err)
	}
	return out, nil
}

func ParseMap(text string) (map[string]any, error) {
	return ParseEntity[map[string]any](text)
}

// stripFences removes a surrounding markdown code block.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
