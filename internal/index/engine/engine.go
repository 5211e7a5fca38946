// Package engine selects the vector index implementation from configuration.
package engine

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"tourism-rag/internal/chromemdb"
	"tourism-rag/internal/config"
	"tourism-rag/internal/db"
	"tourism-rag/internal/index"
)

func New(cfg *config.Config, embedder embeddings.Embedder) (index.Engine, error) {
	switch cfg.Index.Engine {
	case chromemdb.EngineName:
		var embed func(ctx context.Context, text string) ([]float32, error)
		if embedder != nil {
			embed = embedder.EmbedQuery
		}
		return chromemdb.NewVectorDBManager(
			cfg.Index.Path,
			cfg.Index.Collection,
			cfg.Index.InMemory,
			cfg.Index.Compress,
			cfg.Index.EncryptionKey,
			embed,
		), nil
	case db.EngineName:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return db.NewStore(db.NewDB(sqldb, cfg.Database.Debug)), nil
	default:
		return nil, fmt.Errorf("unknown index engine: %s", cfg.Index.Engine)
	}
}

// Open checks the manifest against the configured embedder, then loads the index.
func Open(ctx context.Context, cfg *config.Config, e index.Engine) (index.Handle, *index.Manifest, error) {
	manifest, err := index.ReadManifest(cfg.Index.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := index.CheckManifest(manifest, e.Name(), cfg.EmbedLLM.Provider, cfg.EmbedLLM.Model); err != nil {
		return nil, nil, err
	}
	handle, err := e.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return handle, manifest, nil
}
