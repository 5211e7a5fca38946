// Package index hides the concrete vector engine behind Build/Load/Search.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tourism-rag/internal/models"
)

// Document is one blob with its embedding, as handed to an engine.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is one retrieved blob.
type Result struct {
	ID         string
	Content    string
	Similarity float32
}

// Handle answers nearest-neighbour queries against a built or loaded index.
// Implementations must be safe for concurrent Search calls.
type Handle interface {
	Search(ctx context.Context, embedding []float32, k int) ([]Result, error)
	Count() int
	Close() error
}

// Engine builds a fresh index or loads an existing one.
type Engine interface {
	Name() string
	Build(ctx context.Context, docs []Document) (Handle, error)
	Load(ctx context.Context) (Handle, error)
}

const ManifestFile = "manifest.yaml"

// Manifest records how an index was built so it can be reloaded with the same embedder.
type Manifest struct {
	Engine            string    `yaml:"engine"`
	Collection        string    `yaml:"collection"`
	EmbeddingProvider string    `yaml:"embedding_provider"`
	EmbeddingModel    string    `yaml:"embedding_model"`
	Dimension         int       `yaml:"dimension"`
	Documents         int       `yaml:"documents"`
	BuiltAt           time.Time `yaml:"built_at"`
}

func WriteManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: failed to encode manifest: %w", models.ErrPersistence, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create index dir: %w", models.ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write manifest: %w", models.ErrPersistence, err)
	}
	return nil
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no index found at %s", models.ErrPersistence, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read manifest: %w", models.ErrPersistence, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse manifest: %w", models.ErrPersistence, err)
	}
	return &m, nil
}

// CheckManifest verifies the index was built by engine with the given embedding model.
func CheckManifest(m *Manifest, engine, provider, model string) error {
	if m.Engine != engine {
		return fmt.Errorf("%w: index was built with engine %s, configured %s", models.ErrPersistence, m.Engine, engine)
	}
	if m.EmbeddingProvider != provider || m.EmbeddingModel != model {
		return fmt.Errorf("%w: index was built with %s/%s, configured %s/%s",
			models.ErrPersistence, m.EmbeddingProvider, m.EmbeddingModel, provider, model)
	}
	return nil
}
