package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TOGETHER_AI", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "together", cfg.InferLLM.Provider)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct-v0.2", cfg.InferLLM.Model)
	assert.Equal(t, "https://api.together.xyz/v1", cfg.InferLLM.BaseURL)
	assert.InDelta(t, 0.5, cfg.InferLLM.Temperature, 1e-9)
	assert.Equal(t, 512, cfg.InferLLM.MaxTokens)
	assert.Equal(t, "secret", cfg.InferLLM.Key)
	assert.Equal(t, "chromem", cfg.Index.Engine)
	assert.Equal(t, "./tourism_vector_db", cfg.Index.Path)
	assert.Equal(t, "./data/tourism_data.csv", cfg.Dataset.Path)
	assert.Equal(t, 30*time.Minute, cfg.Memory.SessionTTL)

	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateInference())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("MY_LLM_KEY", "  abc  ")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
embedding_llm:
  provider: ollama
  base_url: http://ollama:11434
inference_llm:
  provider: openai
  model: gpt-4o-mini
  key_env: MY_LLM_KEY
  temperature: 0.2
index:
  path: /tmp/places_index
memory:
  session_ttl: 5m
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://ollama:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.InferLLM.Model)
	assert.Empty(t, cfg.InferLLM.BaseURL)
	assert.Equal(t, "abc", cfg.InferLLM.Key)
	assert.InDelta(t, 0.2, cfg.InferLLM.Temperature, 1e-9)
	assert.Equal(t, "/tmp/places_index", cfg.Index.Path)
	assert.Equal(t, 5*time.Minute, cfg.Memory.SessionTTL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [unterminated"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown embedder", mutate: func(c *Config) { c.EmbedLLM.Provider = "word2vec" }, wantErr: true},
		{name: "openai embedder without key", mutate: func(c *Config) { c.EmbedLLM.Provider = "openai" }, wantErr: true},
		{name: "unknown engine", mutate: func(c *Config) { c.Index.Engine = "faiss" }, wantErr: true},
		{name: "pgvector without dsn", mutate: func(c *Config) { c.Index.Engine = "pgvector" }, wantErr: true},
		{name: "pgvector with dsn", mutate: func(c *Config) {
			c.Index.Engine = "pgvector"
			c.Database.DSN = "postgres://localhost:5432/tourism"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			applyDefaults(&cfg)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateInferenceRequiresKey(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	cfg.resolveSecrets(func(string) string { return "" })

	err := cfg.ValidateInference()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOGETHER_AI")
}
