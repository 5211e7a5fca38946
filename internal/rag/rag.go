package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/prompts"

	"tourism-rag/internal/index"
	"tourism-rag/internal/llmservice"
	"tourism-rag/internal/memory"
	"tourism-rag/internal/models"
)

// RAG answers questions from the indexed places plus the recent turns of the session.
type RAG struct {
	embedder     embeddings.Embedder
	index        index.Handle
	model        llmservice.Model
	sessions     *memory.Store
	prompt       prompts.PromptTemplate
	k            int
	clearHistory bool
}

type Option func(*RAG)

// WithClearHistory renders an empty chat history on every call. Turns are still recorded.
func WithClearHistory(clear bool) Option {
	return func(r *RAG) { r.clearHistory = clear }
}

func WithK(k int) Option {
	return func(r *RAG) { r.k = k }
}

func NewRAG(embedder embeddings.Embedder, idx index.Handle, model llmservice.Model, sessions *memory.Store, opts ...Option) *RAG {
	r := &RAG{
		embedder: embedder,
		index:    idx,
		model:    model,
		sessions: sessions,
		prompt:   prompts.NewPromptTemplate(models.PromptTemplate, models.PromptInputVariables),
		k:        models.RetrievalK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RAG) Documents() int { return r.index.Count() }

// Answer runs one retrieval-augmented turn for sessionID.
func (r *RAG) Answer(ctx context.Context, sessionID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question must not be empty", models.ErrValidation)
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: failed to embed question: %w", models.ErrRetrieval, err)
	}

	results, err := r.index.Search(ctx, queryEmbedding, r.k)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	contextText := joinContext(results)

	sessionID = memory.SessionKey(sessionID)
	window := r.sessions.Get(sessionID)

	// history is a snapshot; concurrent turns of one session may both see it
	history := ""
	if !r.clearHistory {
		history = window.Format()
	}

	prompt, err := r.prompt.Format(map[string]any{
		"context":      contextText,
		"chat_history": history,
		"question":     question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %v", err)
	}
	log.Debug().Str("session", sessionID).Int("retrieved", len(results)).Bool("history", history != "").Msg("Prompt rendered")

	answer, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	window.Append(models.Turn{Question: question, Answer: answer})
	return answer, nil
}

func joinContext(results []index.Result) string {
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Content
	}
	return strings.Join(parts, models.ContextSeparator)
}
