package app

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/prompt"
)

const (
	defaultInputValidationMessage = "What is the capital of the state of California?"
	defaultPostTopic              = "JDK Virtual Threads"
	factCheckingQuestion          = "How many GitHub stars does the Spring Boot repository have as of today?"
)

var injectionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore previous instructions`),
	regexp.MustCompile(`(?i)system prompt`),
	regexp.MustCompile(`(?i)you are now`),
}

// SanitizePrompt strips well known injection phrases.
func SanitizePrompt(input string) string {
	for _, re := range injectionPhrases {
		input = re.ReplaceAllString(input, "")
	}
	return strings.TrimSpace(input)
}

// PromptService demonstrates prompting techniques on a client without memory.
type PromptService struct {
	chat *ai.ChatClient
}

func NewPromptService(chat *ai.ChatClient) *PromptService {
	return &PromptService{chat: chat}
}

func (s *PromptService) ZeroShot(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	return s.call(ctx, schema.UserMessage(message))
}

func (s *PromptService) FewShot(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	examples, err := prompt.Text(prompt.FewShotExamples)
	if err != nil {
		return "", err
	}
	system, err := prompt.SystemMessage(ctx, prompt.FewShot, map[string]any{"few_shot_prompts": examples})
	if err != nil {
		return "", err
	}
	return s.call(ctx, system, schema.UserMessage(message))
}

// MultiStep feeds the first step's answer into the second step.
func (s *PromptService) MultiStep(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	first, err := prompt.UserMessage(ctx, prompt.MultiStepOne, map[string]any{"input": message})
	if err != nil {
		return "", err
	}
	facts, err := s.call(ctx, first)
	if err != nil {
		return "", err
	}
	second, err := prompt.UserMessage(ctx, prompt.MultiStepTwo, map[string]any{"input": facts})
	if err != nil {
		return "", err
	}
	return s.call(ctx, second)
}

func (s *PromptService) TravelAssistant(ctx context.Context, message string, travelContext map[string]any) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	contextText := "none"
	if len(travelContext) > 0 {
		raw, err := json.Marshal(travelContext)
		if err != nil {
			return "", ErrInvalidInput
		}
		contextText = string(raw)
	}

	system, err := prompt.SystemMessage(ctx, prompt.TravelSystem, nil)
	if err != nil {
		return "", err
	}
	user, err := prompt.UserMessage(ctx, prompt.TravelPrompt, map[string]any{"context": contextText, "input": message})
	if err != nil {
		return "", err
	}
	return s.call(ctx, system, user)
}

func (s *PromptService) FactChecking(ctx context.Context) (string, error) {
	system, err := prompt.SystemMessage(ctx, prompt.FactChecking, nil)
	if err != nil {
		return "", err
	}
	return s.call(ctx, system, schema.UserMessage(factCheckingQuestion))
}

func (s *PromptService) InputValidation(ctx context.Context, message string) (string, error) {
	message = SanitizePrompt(message)
	if message == "" {
		message = defaultInputValidationMessage
	}
	system, err := prompt.SystemMessage(ctx, prompt.InputValidation, nil)
	if err != nil {
		return "", err
	}
	return s.call(ctx, system, schema.UserMessage(message))
}

// SafePrompt asks the model to classify the input first and only summarizes
// input classified as safe.
func (s *PromptService) SafePrompt(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrInvalidInput
	}
	check, err := prompt.UserMessage(ctx, prompt.InjectionCheck, map[string]any{"input": message})
	if err != nil {
		return "", err
	}
	verdict, err := s.call(ctx, check)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(strings.TrimSpace(verdict)) {
	case "unsafe":
		return "", ErrPromptInjection
	case "":
		return "", ErrNullModelResponse
	case "safe":
		summary, err := prompt.UserMessage(ctx, prompt.Summary, map[string]any{"input": message})
		if err != nil {
			return "", err
		}
		return s.call(ctx, summary)
	default:
		return "", ErrInvalidModelResponse
	}
}

func (s *PromptService) Posts(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		topic = defaultPostTopic
	}
	system, err := prompt.SystemMessage(ctx, prompt.BlogPost, nil)
	if err != nil {
		return "", err
	}
	user, err := prompt.UserMessage(ctx, prompt.BlogPostRequest, map[string]any{"topic": topic})
	if err != nil {
		return "", err
	}
	return s.call(ctx, system, user)
}

func (s *PromptService) call(ctx context.Context, messages ...*schema.Message) (string, error) {
	return callContent(ctx, s.chat, &ai.Request{Messages: messages})
}
