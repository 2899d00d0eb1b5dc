package app

import (
	"context"
	"log"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/memory"
	"gopherai-workshop/internal/model"
	"gopherai-workshop/internal/prompt"
)

const (
	defaultJokeTopic           = "software developer"
	defaultProgrammingLanguage = "Java"
	touristAttractionsPrompt   = "I am visiting Poland can you give me 10 places I must visit"
	summaryMemoryPrefix        = "summary:"
)

type Book struct {
	Title   string `json:"title" jsonschema:"description=Book title"`
	Author  string `json:"author" jsonschema:"description=Author full name"`
	Year    int    `json:"year" jsonschema:"description=Year of first publication"`
	Summary string `json:"summary" jsonschema:"description=Short plot summary"`
}

// TranscriptReader reads the archived conversation transcript.
type TranscriptReader interface {
	ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.ConversationMessage, error)
}

type ChatService struct {
	chat        *ai.ChatClient
	plain       *ai.ChatClient
	summary     *ai.ChatClient
	memory      memory.ChatMemory
	transcripts TranscriptReader
	searchTools []ai.Tool
}

// NewChatService takes a chat client with memory advisors, one without, and
// the secondary summary client.
func NewChatService(
	chat *ai.ChatClient,
	plain *ai.ChatClient,
	summary *ai.ChatClient,
	mem memory.ChatMemory,
	transcripts TranscriptReader,
	searchTools []ai.Tool,
) *ChatService {
	return &ChatService{
		chat:        chat,
		plain:       plain,
		summary:     summary,
		memory:      mem,
		transcripts: transcripts,
		searchTools: searchTools,
	}
}

func (s *ChatService) Chat(ctx context.Context, conversationID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	return callContent(ctx, s.chat, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.UserMessage(message)},
	})
}

func (s *ChatService) Jokes(ctx context.Context, conversationID, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		topic = defaultJokeTopic
	}
	user, err := prompt.UserMessage(ctx, prompt.Joke, map[string]any{"topic": topic})
	if err != nil {
		return "", err
	}
	return callContent(ctx, s.chat, &ai.Request{ConversationID: conversationID, Messages: []*schema.Message{user}})
}

// TouristAttractions streams the answer lowercased.
func (s *ChatService) TouristAttractions(ctx context.Context, conversationID string) (*schema.StreamReader[string], error) {
	sr, err := s.chat.Stream(ctx, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.UserMessage(touristAttractionsPrompt)},
	})
	if err != nil {
		return nil, modelErr(err)
	}
	return schema.StreamReaderWithConvert(sr, func(msg *schema.Message) (string, error) {
		return strings.ToLower(msg.Content), nil
	}), nil
}

func (s *ChatService) DevAssistant(ctx context.Context, conversationID, message, language string) (*schema.StreamReader[string], error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(language) == "" {
		language = defaultProgrammingLanguage
	}
	system, err := prompt.SystemMessage(ctx, prompt.DevAssistant, map[string]any{"programming_language": language})
	if err != nil {
		return nil, err
	}
	sr, err := s.chat.Stream(ctx, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{system, schema.UserMessage(message)},
		Options:        []einomodel.Option{einomodel.WithTemperature(0.1), einomodel.WithMaxTokens(1000)},
	})
	if err != nil {
		return nil, modelErr(err)
	}
	return contentStream(sr), nil
}

// Conversation compresses earlier turns with the summary model and sends the
// summary as the system message instead of the raw history.
func (s *ChatService) Conversation(ctx context.Context, conversationID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	key := summaryMemoryPrefix + conversationID

	summary, err := s.summarize(ctx, key)
	if err != nil {
		return "", err
	}
	log.Printf("conversation summary: conversation=%s summary=%q", conversationID, summary)

	user := schema.UserMessage(message)
	if err := s.memory.Add(ctx, key, user); err != nil {
		return "", err
	}
	reply, err := callContent(ctx, s.plain, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.SystemMessage(summary), user},
	})
	if err != nil {
		return "", err
	}
	if err := s.memory.Add(ctx, key, schema.AssistantMessage(reply, nil)); err != nil {
		return "", err
	}
	return reply, nil
}

func (s *ChatService) summarize(ctx context.Context, key string) (string, error) {
	history, err := s.memory.Get(ctx, key)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(history))
	for _, m := range history {
		parts = append(parts, m.Content)
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return "-", nil
	}
	user, err := prompt.UserMessage(ctx, prompt.ConversationSummary, map[string]any{"text": text})
	if err != nil {
		return "", err
	}
	return callContent(ctx, s.summary, &ai.Request{Messages: []*schema.Message{user}})
}

func (s *ChatService) StatefulConversation(ctx context.Context, conversationID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	return callContent(ctx, s.chat, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.UserMessage(message)},
		Advisors:       []ai.Advisor{ai.LoggerAdvisor{}, ai.TimestampAdvisor{}},
	})
}

// StructuredByPrompt relies on the user message itself to ask for a format.
func (s *ChatService) StructuredByPrompt(ctx context.Context, conversationID, message string) (string, error) {
	return s.Chat(ctx, conversationID, message)
}

func (s *ChatService) StructuredByType(ctx context.Context, conversationID, message string) (*Book, error) {
	book, err := structured[Book](ctx, s.chat, conversationID, message)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (s *ChatService) StructuredByParametrizedType(ctx context.Context, conversationID, message string) ([]Book, error) {
	return structured[[]Book](ctx, s.chat, conversationID, message)
}

func (s *ChatService) StructuredAsMap(ctx context.Context, conversationID, message string) (map[string]any, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrInvalidInput
	}
	format := ai.FormatAdvisor{Render: func(ctx context.Context, user string) (string, error) {
		return prompt.Render(ctx, prompt.MapOutput, map[string]any{"input": user, "format": ai.MapFormat})
	}}
	reply, err := callContent(ctx, s.chat, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.UserMessage(message)},
		Advisors:       []ai.Advisor{format},
	})
	if err != nil {
		return nil, err
	}
	out, err := ai.ParseMap(reply)
	if err != nil {
		return nil, modelErr(err)
	}
	return out, nil
}

// Search lets the model call the time and power tools.
func (s *ChatService) Search(ctx context.Context, message string, toolContext map[string]any) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	return callContent(ctx, s.plain, &ai.Request{
		Messages:    []*schema.Message{schema.UserMessage(message)},
		Tools:       s.searchTools,
		ToolContext: toolContext,
	})
}

// History returns the archived transcript, or the live memory window when no
// archive is configured.
func (s *ChatService) History(ctx context.Context, conversationID string, limit int) ([]model.ConversationMessage, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidInput
	}
	if s.transcripts != nil {
		return s.transcripts.ListByConversationID(ctx, conversationID, limit)
	}
	window, err := s.memory.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConversationMessage, 0, len(window))
	for _, m := range window {
		out = append(out, model.ConversationMessage{ConversationID: conversationID, Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

func (s *ChatService) ClearMemory(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidInput
	}
	if err := s.memory.Clear(ctx, conversationID); err != nil {
		return err
	}
	return s.memory.Clear(ctx, summaryMemoryPrefix+conversationID)
}

func structured[T any](ctx context.Context, c *ai.ChatClient, conversationID, message string) (T, error) {
	var zero T
	message = strings.TrimSpace(message)
	if message == "" {
		return zero, ErrInvalidInput
	}
	out, err := ai.Entity[T](ctx, c, &ai.Request{
		ConversationID: conversationID,
		Messages:       []*schema.Message{schema.UserMessage(message)},
	})
	if err != nil {
		return zero, modelErr(err)
	}
	return out, nil
}

func callContent(ctx context.Context, c *ai.ChatClient, req *ai.Request) (string, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return "", modelErr(err)
	}
	return resp.Content(), nil
}

func contentStream(sr *schema.StreamReader[*schema.Message]) *schema.StreamReader[string] {
	return schema.StreamReaderWithConvert(sr, func(msg *schema.Message) (string, error) {
		return msg.Content, nil
	})
}
