package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tourism-rag/internal/models"
)

// LLMConfig configures either the embedding model or the inference model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	KeyEnv      string  `yaml:"key_env"`
	Key         string  `yaml:"-"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BatchSize   int     `yaml:"batch_size"`
}

type IndexConfig struct {
	Engine        string `yaml:"engine"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	PasswordEnv string `yaml:"password_env"`
	Password    string `yaml:"-"`
	Debug       bool   `yaml:"debug"`
}

type RAGConfig struct {
	// ClearHistoryOnCall renders an empty CHAT_HISTORY while still recording turns.
	ClearHistoryOnCall bool `yaml:"clear_history_on_call"`
}

type MemoryConfig struct {
	SessionTTL    time.Duration `yaml:"session_ttl"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatasetConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	LogLevel string         `yaml:"log_level"`
	EmbedLLM LLMConfig      `yaml:"embedding_llm"`
	InferLLM LLMConfig      `yaml:"inference_llm"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	RAG      RAGConfig      `yaml:"rag"`
	Memory   MemoryConfig   `yaml:"memory"`
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
}

const (
	defaultIndexPath  = "./tourism_vector_db"
	defaultCollection = "tourism"
	defaultDataset    = "./data/tourism_data.csv"
)

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// Any .env file in the working directory is loaded first; credentials are then
// read from the environment once and kept on the returned Config.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %v", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %v", path, err)
		}
	}

	applyDefaults(&cfg)
	cfg.resolveSecrets(os.Getenv)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	e := &cfg.EmbedLLM
	if e.Provider == "" {
		e.Provider = models.DefaultEmbeddingProvider
	}
	if e.Model == "" {
		e.Model = defaultEmbeddingModel(e.Provider)
	}
	if e.BaseURL == "" && e.Provider == "ollama" {
		e.BaseURL = "http://localhost:11434"
	}
	if e.KeyEnv == "" {
		e.KeyEnv = defaultKeyEnv(e.Provider)
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}

	i := &cfg.InferLLM
	if i.Provider == "" {
		i.Provider = models.DefaultInferenceProvider
	}
	if i.Model == "" {
		i.Model = models.DefaultInferenceModel
	}
	if i.BaseURL == "" && i.Provider == "together" {
		i.BaseURL = "https://api.together.xyz/v1"
	}
	if i.KeyEnv == "" {
		i.KeyEnv = defaultKeyEnv(i.Provider)
	}
	if i.Temperature == 0 {
		i.Temperature = models.DefaultTemperature
	}
	if i.MaxTokens == 0 {
		i.MaxTokens = models.DefaultMaxTokens
	}

	if cfg.Index.Engine == "" {
		cfg.Index.Engine = "chromem"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = defaultIndexPath
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = defaultCollection
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Database.PasswordEnv == "" {
		cfg.Database.PasswordEnv = "DATABASE_PASSWORD"
	}

	if cfg.Memory.SessionTTL == 0 {
		cfg.Memory.SessionTTL = 30 * time.Minute
	}
	if cfg.Memory.PruneInterval == 0 {
		cfg.Memory.PruneInterval = time.Minute
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}

	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = defaultDataset
	}
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case "openai":
		return "text-embedding-3-small"
	case "gemini":
		return "text-embedding-004"
	default:
		return models.DefaultEmbeddingModel
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case "together":
		return "TOGETHER_AI"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// resolveSecrets copies credentials out of the environment. The environment is never written.
func (c *Config) resolveSecrets(getenv func(string) string) {
	if c.EmbedLLM.KeyEnv != "" {
		c.EmbedLLM.Key = strings.TrimSpace(getenv(c.EmbedLLM.KeyEnv))
	}
	if c.InferLLM.KeyEnv != "" {
		c.InferLLM.Key = strings.TrimSpace(getenv(c.InferLLM.KeyEnv))
	}
	if c.Database.PasswordEnv != "" {
		c.Database.Password = getenv(c.Database.PasswordEnv)
	}
}

// Validate checks what both binaries need: the embedder and the index engine.
func (c *Config) Validate() error {
	switch c.EmbedLLM.Provider {
	case "ollama":
	case "openai", "gemini":
		if c.EmbedLLM.Key == "" {
			return fmt.Errorf("embedding provider %s requires %s to be set", c.EmbedLLM.Provider, c.EmbedLLM.KeyEnv)
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.EmbedLLM.Provider)
	}

	switch c.Index.Engine {
	case "chromem":
		if c.Index.EncryptionKey != "" && len(c.Index.EncryptionKey) != 32 {
			return fmt.Errorf("index.encryption_key must be 32 bytes long")
		}
		if c.Index.InMemory && c.Index.EncryptionKey == "" {
			return fmt.Errorf("index.in_memory requires index.encryption_key")
		}
	case "pgvector":
		if c.Database.DSN == "" {
			return fmt.Errorf("index engine pgvector requires database.dsn")
		}
		if c.Database.Driver != "pgdriver" && c.Database.Driver != "pq" {
			return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown index engine: %s", c.Index.Engine)
	}
	return nil
}

// ValidateInference checks the language model settings used by the query service.
func (c *Config) ValidateInference() error {
	switch c.InferLLM.Provider {
	case "together", "openai", "gemini":
	default:
		return fmt.Errorf("unknown inference provider: %s", c.InferLLM.Provider)
	}
	if c.InferLLM.Key == "" {
		return fmt.Errorf("inference provider %s requires %s to be set", c.InferLLM.Provider, c.InferLLM.KeyEnv)
	}
	if c.InferLLM.MaxTokens < 0 {
		return fmt.Errorf("inference_llm.max_tokens must not be negative")
	}
	return nil
}
