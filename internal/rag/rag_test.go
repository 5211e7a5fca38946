package rag

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-rag/internal/index"
	"tourism-rag/internal/memory"
	"tourism-rag/internal/models"
)

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, f.err
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	results []index.Result
	err     error
	k       int
}

func (f *fakeIndex) Search(ctx context.Context, embedding []float32, k int) ([]index.Result, error) {
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeIndex) Count() int   { return len(f.results) }
func (f *fakeIndex) Close() error { return nil }

type fakeModel struct {
	prompts []string
	answer  string
	err     error
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func beachIndex() *fakeIndex {
	return &fakeIndex{results: []index.Result{
		{ID: "place-1", Content: "Place: Calangute Beach. Description: beach resort."},
		{ID: "place-2", Content: "Place: Baga Beach. Description: beach shacks."},
		{ID: "place-3", Content: "Place: Palolem. Description: quiet cove."},
		{ID: "place-4", Content: "Place: Anjuna. Description: flea market."},
		{ID: "place-5", Content: "Place: Amber Fort. Description: hilltop fort."},
	}}
}

func TestAnswerBuildsPromptFromRetrievedContext(t *testing.T) {
	idx := beachIndex()
	model := &fakeModel{answer: "Calangute Beach has resorts."}
	r := NewRAG(&fakeEmbedder{}, idx, model, memory.NewStore(models.MemoryWindow))

	answer, err := r.Answer(context.Background(), "", "Suggest some beach resorts")
	require.NoError(t, err)
	assert.Equal(t, "Calangute Beach has resorts.", answer)
	assert.Equal(t, models.RetrievalK, idx.k)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "CONTEXT: Place: Calangute Beach. Description: beach resort.\n\nPlace: Baga Beach.")
	assert.Contains(t, prompt, "QUESTION: Suggest some beach resorts")
	assert.Contains(t, prompt, "Place: Anjuna.")
	assert.NotContains(t, prompt, "Amber Fort")
	assert.Contains(t, prompt, "CHAT HISTORY: \n")
}

func TestAnswerSurfacesSessionHistory(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	sessions := memory.NewStore(models.MemoryWindow)
	r := NewRAG(&fakeEmbedder{}, beachIndex(), model, sessions)
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		_, err := r.Answer(ctx, "s1", q)
		require.NoError(t, err)
	}
	_, err := r.Answer(ctx, "s2", "other")
	require.NoError(t, err)

	assert.Contains(t, model.prompts[2], "Human: first\nAI: ok\nHuman: second\nAI: ok")
	assert.NotContains(t, model.prompts[3], "Human:")
	assert.Equal(t, 2, sessions.Get("s1").Len())
	assert.Equal(t, []models.Turn{{Question: "second", Answer: "ok"}, {Question: "third", Answer: "ok"}}, sessions.Get("s1").Turns())
}

func TestAnswerWithClearHistory(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	sessions := memory.NewStore(models.MemoryWindow)
	r := NewRAG(&fakeEmbedder{}, beachIndex(), model, sessions, WithClearHistory(true))

	for _, q := range []string{"first", "second"} {
		_, err := r.Answer(context.Background(), "", q)
		require.NoError(t, err)
	}

	assert.NotContains(t, model.prompts[1], "Human: first")
	assert.Equal(t, 2, sessions.Get(models.DefaultSessionID).Len())
}

func TestAnswerEmptyIndex(t *testing.T) {
	model := &fakeModel{answer: "I don't know."}
	r := NewRAG(&fakeEmbedder{}, &fakeIndex{}, model, memory.NewStore(models.MemoryWindow))

	answer, err := r.Answer(context.Background(), "", "Any museums?")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer)
	assert.Contains(t, model.prompts[0], "CONTEXT: \n")
}

func TestAnswerErrors(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewStore(models.MemoryWindow)

	_, err := NewRAG(&fakeEmbedder{}, beachIndex(), &fakeModel{}, sessions).Answer(ctx, "", "  ")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = NewRAG(&fakeEmbedder{err: errors.New("ollama down")}, beachIndex(), &fakeModel{}, sessions).Answer(ctx, "", "q")
	assert.ErrorIs(t, err, models.ErrRetrieval)

	_, err = NewRAG(&fakeEmbedder{}, &fakeIndex{err: errors.New("closed")}, &fakeModel{}, sessions).Answer(ctx, "", "q")
	assert.ErrorIs(t, err, models.ErrRetrieval)

	failing := &fakeModel{err: models.ErrModelInvocation}
	_, err = NewRAG(&fakeEmbedder{}, beachIndex(), failing, sessions).Answer(ctx, "s", "q")
	assert.ErrorIs(t, err, models.ErrModelInvocation)
	assert.Equal(t, 0, sessions.Get("s").Len(), "failed turns are not recorded")
}

// blockingModel holds every call until want calls are in flight at once.
type blockingModel struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	want     int
	ready    chan struct{}
	once     sync.Once
}

func newBlockingModel(want int) *blockingModel {
	return &blockingModel{want: want, ready: make(chan struct{})}
}

func (m *blockingModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.inFlight++
	m.peak = max(m.peak, m.inFlight)
	if m.inFlight >= m.want {
		m.once.Do(func() { close(m.ready) })
	}
	m.mu.Unlock()

	select {
	case <-m.ready:
	case <-time.After(2 * time.Second):
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
	return "ok", nil
}

func TestAnswerDefaultSessionCallsModelConcurrently(t *testing.T) {
	for _, clearHistory := range []bool{false, true} {
		model := newBlockingModel(4)
		sessions := memory.NewStore(models.MemoryWindow)
		r := NewRAG(&fakeEmbedder{}, beachIndex(), model, sessions, WithClearHistory(clearHistory))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Answer(context.Background(), "", "Suggest some beach resorts")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 4, model.peak, "clear=%v", clearHistory)
		assert.Equal(t, models.MemoryWindow, sessions.Get(models.DefaultSessionID).Len())
	}
}

func TestAnswerLogsDefaultSessionKey(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = prev }()

	r := NewRAG(&fakeEmbedder{}, beachIndex(), &fakeModel{answer: "ok"}, memory.NewStore(models.MemoryWindow))
	_, err := r.Answer(context.Background(), "", "q")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"session":"default"`)
}

func TestPromptCarriesNoInstructionTags(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	r := NewRAG(&fakeEmbedder{}, beachIndex(), model, memory.NewStore(models.MemoryWindow))
	_, err := r.Answer(context.Background(), "", "q")
	require.NoError(t, err)

	assert.NotContains(t, model.prompts[0], "[INST]")
	assert.NotContains(t, model.prompts[0], "<s>")
	assert.True(t, strings.HasSuffix(model.prompts[0], "ANSWER:"))
}
