package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"tourism-rag/internal/index"
	"tourism-rag/internal/models"
)

const (
	EngineName = "chromem"
	dbDir      = "chromem"
)

// VectorDBManager stores place blobs in a chromem-go collection.
// The persistent layout is <path>/chromem/ plus an optional encrypted
// snapshot <path>/<collection>.chromem.
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	dbPath         string
	collectionName string
	inMemory       bool
	compress       bool
	encryptionKey  string
	filePath       string
	embed          chromem.EmbeddingFunc
}

// NewVectorDBManager prepares a manager rooted at indexPath. Nothing is opened until Build or Load.
// embed is only used by chromem when a document lacks an embedding.
func NewVectorDBManager(indexPath, collectionName string, inMemory, compress bool, encryptionKey string, embed chromem.EmbeddingFunc) *VectorDBManager {
	return &VectorDBManager{
		dbPath:         filepath.Join(indexPath, dbDir),
		collectionName: collectionName,
		inMemory:       inMemory,
		compress:       compress,
		encryptionKey:  encryptionKey,
		filePath:       filepath.Join(indexPath, collectionName+".chromem"),
		embed:          embed,
	}
}

func (m *VectorDBManager) Name() string { return EngineName }

// Build replaces any existing collection with docs.
func (m *VectorDBManager) Build(ctx context.Context, docs []index.Document) (index.Handle, error) {
	if m.inMemory && m.encryptionKey == "" {
		return nil, fmt.Errorf("%w: in-memory index requires an encryption key for its snapshot", models.ErrPersistence)
	}

	var err error
	if m.inMemory {
		m.db = chromem.NewDB()
	} else {
		m.db, err = chromem.NewPersistentDB(m.dbPath, m.compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create database: %w", models.ErrPersistence, err)
		}
	}

	// overwrite the prior artifact
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return nil, fmt.Errorf("%w: failed to drop collection: %w", models.ErrPersistence, err)
	}
	m.collection, err = m.db.CreateCollection(m.collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create collection: %w", models.ErrPersistence, err)
	}

	log.Info().Str("collection", m.collectionName).Msgf("Adding %d documents to vector database", len(docs))
	if err := m.CreateDocs(ctx, docs); err != nil {
		return nil, err
	}

	if m.encryptionKey != "" {
		if err := m.Export(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Load opens an existing index. It never creates one.
func (m *VectorDBManager) Load(ctx context.Context) (index.Handle, error) {
	if m.inMemory {
		if err := mustExist(m.filePath); err != nil {
			return nil, err
		}
		m.db = chromem.NewDB()
		if err := m.Import(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := mustExist(m.dbPath); err != nil {
			return nil, err
		}
		var err error
		m.db, err = chromem.NewPersistentDB(m.dbPath, m.compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open database: %w", models.ErrPersistence, err)
		}
	}

	m.collection = m.db.GetCollection(m.collectionName, m.embed)
	if m.collection == nil {
		return nil, fmt.Errorf("%w: collection %s not found", models.ErrPersistence, m.collectionName)
	}
	log.Info().Str("collection", m.collectionName).Int("documents", m.collection.Count()).Msg("Loaded vector database")
	return m, nil
}

func mustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: no index found at %s", models.ErrPersistence, path)
		}
		return fmt.Errorf("%w: failed to stat %s: %w", models.ErrPersistence, path, err)
	}
	return nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %w", models.ErrPersistence, err)
	}
	return nil
}

// Search returns the k most similar blobs. k is capped at the collection size.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]index.Result, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is not loaded")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if n := m.collection.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]index.Result, len(results))
	for i, r := range results {
		out[i] = index.Result{ID: r.ID, Content: r.Content, Similarity: r.Similarity}
	}
	return out, nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

func (m *VectorDBManager) Close() error { return nil }

// export to file, uncompressed so Import can read it back as is
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Msg("Exporting collection")
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create snapshot dir: %w", models.ErrPersistence, err)
	}
	if err := m.db.ExportToFile(m.filePath, false, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("%w: failed to export database: %w", models.ErrPersistence, err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(ctx context.Context) error {
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("%w: failed to import database: %w", models.ErrPersistence, err)
	}
	return nil
}
