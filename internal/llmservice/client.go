package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/api/option"

	"tourism-rag/internal/config"
	"tourism-rag/internal/models"
)

// Model turns a fully rendered prompt into an answer.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewModel builds the inference client. together and openai both speak the
// OpenAI chat completions protocol.
func NewModel(ctx context.Context, cfg *config.LLMConfig) (Model, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":    cfg.Provider,
		"base_url":    cfg.BaseURL,
		"model":       cfg.Model,
		"temperature": cfg.Temperature,
		"max_tokens":  cfg.MaxTokens,
	}).Msg("Creating inference model")

	switch cfg.Provider {
	case "together", "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize %s client: %w", models.ErrDependencyUnavailable, cfg.Provider, err)
		}
		return &ChatModel{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
	case "gemini":
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize gemini client: %w", models.ErrDependencyUnavailable, err)
		}
		return NewGeminiModel(client, cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown inference provider: %s", models.ErrDependencyUnavailable, cfg.Provider)
	}
}

// ChatModel sends the prompt as a single human message.
type ChatModel struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
}

func NewChatModel(llm llms.Model, temperature float64, maxTokens int) *ChatModel {
	return &ChatModel{llm: llm, temperature: temperature, maxTokens: maxTokens}
}

func (m *ChatModel) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate content: %w", models.ErrModelInvocation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", models.ErrModelInvocation)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

type GeminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiModel(client *genai.Client, cfg *config.LLMConfig) *GeminiModel {
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	return &GeminiModel{client: client, model: model}
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate content: %w", models.ErrModelInvocation, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: model returned no candidates", models.ErrModelInvocation)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (g *GeminiModel) Close() error { return g.client.Close() }
