package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/coze-dev/cozeloop-go"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type ChatModelConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// NewChatModel builds an OpenAI-compatible model, or a Gemini model when the
// provider is "gemini".
func NewChatModel(ctx context.Context, cfg ChatModelConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for model %s", cfg.Model)
	}

	if strings.EqualFold(cfg.Provider, ProviderGemini) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client failed: %w", err)
		}
		m, err := geminiModel.NewChatModel(ctx, &geminiModel.Config{
			Client: client,
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini model failed: %w", err)
		}
		return m, nil
	}

	modelCfg := &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}
	if cfg.Temperature > 0 {
		t := float32(cfg.Temperature)
		modelCfg.Temperature = &t
	}
	m, err := openaiModel.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("create openai model failed: %w", err)
	}
	return m, nil
}

type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

func NewEmbedder(ctx context.Context, cfg EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for embedding model %s", cfg.Model)
	}
	embedCfg := &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}
	if cfg.Dimensions > 0 {
		d := cfg.Dimensions
		embedCfg.Dimensions = &d
	}
	e, err := openaiEmbed.NewEmbedder(ctx, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}
	return e, nil
}

// SetupTracing registers cozeloop as a global eino callback handler. The
// returned func flushes and closes the client; it is a no-op when tracing is
// not configured.
func SetupTracing(ctx context.Context, apiToken, workspaceID string) (func(), error) {
	if apiToken == "" || workspaceID == "" {
		return func() {}, nil
	}
	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(apiToken),
		cozeloop.WithWorkspaceID(workspaceID),
	)
	if err != nil {
		return nil, fmt.Errorf("create cozeloop client failed: %w", err)
	}
	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))
	log.Printf("cozeloop tracing enabled: workspace=%s", workspaceID)
	return func() { client.Close(ctx) }, nil
}
