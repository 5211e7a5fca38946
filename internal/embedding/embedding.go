package embedding

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/api/option"

	"tourism-rag/internal/config"
	"tourism-rag/internal/models"
)

// Embedder is a langchaingo embedder that also releases its provider client.
type Embedder struct {
	embeddings.Embedder
	client embeddings.EmbedderClient
}

// NewEmbedder builds the embedding function shared by the indexer and the query service.
func NewEmbedder(ctx context.Context, cfg *config.LLMConfig) (*Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	client, err := newEmbedderClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize %s embedder: %w", models.ErrDependencyUnavailable, cfg.Provider, err)
	}
	return wrapClient(client, cfg.BatchSize)
}

func wrapClient(client embeddings.EmbedderClient, batchSize int) (*Embedder, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embedder: %w", models.ErrDependencyUnavailable, err)
	}
	return &Embedder{Embedder: embedder, client: client}, nil
}

// Close releases the provider client when it holds one (gemini).
func (e *Embedder) Close() error {
	if c, ok := e.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newEmbedderClient(ctx context.Context, cfg *config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.Key, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// GenerateEmbeddings embeds the blobs in batches, one vector per blob.
func GenerateEmbeddings(ctx context.Context, embedder embeddings.Embedder, blobs []models.Blob) ([][]float32, error) {
	if len(blobs) == 0 {
		log.Info().Msg("No blobs to embed")
		return nil, nil
	}

	texts := make([]string, len(blobs))
	for i, b := range blobs {
		texts[i] = b.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed documents: %w", models.ErrDependencyUnavailable, err)
	}
	if len(vectors) != len(blobs) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d documents", models.ErrDependencyUnavailable, len(vectors), len(blobs))
	}
	return vectors, nil
}

// GeminiEmbedder adapts the Gemini embedding API to langchaingo's EmbedderClient.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

func (g *GeminiEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	vectors := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		vectors = append(vectors, e.Values)
	}
	return vectors, nil
}

func (g *GeminiEmbedder) Close() error {
	return g.client.Close()
}
