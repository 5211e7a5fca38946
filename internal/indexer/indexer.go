// Package indexer turns the tourism dataset into a persisted vector index.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"tourism-rag/internal/config"
	"tourism-rag/internal/embedding"
	"tourism-rag/internal/helper"
	"tourism-rag/internal/index"
	"tourism-rag/internal/models"
	"tourism-rag/internal/parser"
)

type Indexer struct {
	cfg      *config.Config
	embedder embeddings.Embedder
	engine   index.Engine
	now      func() time.Time
}

func New(cfg *config.Config, embedder embeddings.Embedder, engine index.Engine) *Indexer {
	return &Indexer{cfg: cfg, embedder: embedder, engine: engine, now: time.Now}
}

// Blobs parses the dataset and renders one blob per place.
func (ix *Indexer) Blobs() ([]models.Blob, error) {
	places, err := parser.ParsePlaces(ix.cfg.Dataset.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dataset", ix.cfg.Dataset.Path).Int("places", len(places)).Msg("Parsed dataset")
	return parser.CreateBlobs(places), nil
}

// DryRun prints the rendered blobs without embedding or writing anything.
func (ix *Indexer) DryRun() ([]models.Blob, error) {
	blobs, err := ix.Blobs()
	if err != nil {
		return nil, err
	}
	helper.PrettyPrint(blobs)
	return blobs, nil
}

// Run rebuilds the index, overwriting any prior artifact, and writes its manifest.
func (ix *Indexer) Run(ctx context.Context) (*index.Manifest, error) {
	blobs, err := ix.Blobs()
	if err != nil {
		return nil, err
	}

	vectors, err := embedding.GenerateEmbeddings(ctx, ix.embedder, blobs)
	if err != nil {
		return nil, err
	}

	docs := make([]index.Document, len(blobs))
	dimension := 0
	for i, b := range blobs {
		docs[i] = index.Document{ID: b.ID, Content: b.Content, Metadata: b.Metadata, Embedding: vectors[i]}
		if dimension == 0 {
			dimension = len(vectors[i])
		}
	}

	if err := helper.CreateFolder(ix.cfg.Index.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	handle, err := ix.engine.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	manifest := index.Manifest{
		Engine:            ix.engine.Name(),
		Collection:        ix.cfg.Index.Collection,
		EmbeddingProvider: ix.cfg.EmbedLLM.Provider,
		EmbeddingModel:    ix.cfg.EmbedLLM.Model,
		Dimension:         dimension,
		Documents:         handle.Count(),
		BuiltAt:           ix.now().UTC(),
	}
	if err := index.WriteManifest(ix.cfg.Index.Path, manifest); err != nil {
		return nil, err
	}

	log.Info().
		Str("engine", manifest.Engine).
		Str("path", ix.cfg.Index.Path).
		Int("documents", manifest.Documents).
		Int("dimension", dimension).
		Msg("Index built")
	return &manifest, nil
}
