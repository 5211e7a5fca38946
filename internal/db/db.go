package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"tourism-rag/internal/config"
	"tourism-rag/internal/index"
	"tourism-rag/internal/models"
)

const (
	EngineName  = "pgvector"
	insertBatch = 500
)

type PlaceDocument struct {
	bun.BaseModel `bun:"table:places,alias:p"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Place         string          `bun:"place"`
	Location      string          `bun:"location"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool using the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq":
		dsn, err := withPassword(cfg.DSN, cfg.Password)
		if err != nil {
			return nil, err
		}
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid dsn: %w", models.ErrPersistence, err)
		}
		return sql.OpenDB(connector), nil
	default:
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	}
}

func withPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: invalid dsn: %w", models.ErrPersistence, err)
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}

// Store keeps place blobs in a pgvector table and ranks them by cosine distance.
type Store struct {
	db    *bun.DB
	count int
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string { return EngineName }

func InitDB(ctx context.Context, db bun.IDB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*PlaceDocument)(nil)).IfNotExists().Exec(ctx)
	return err
}

// drop table places
func DropDocuments(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDropTable().Model((*PlaceDocument)(nil)).IfExists().Exec(ctx)
	return err
}

func StoreDocuments(ctx context.Context, db bun.IDB, docs []PlaceDocument) error {
	for start := 0; start < len(docs); start += insertBatch {
		end := min(start+insertBatch, len(docs))
		batch := docs[start:end]
		if _, err := db.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Build drops and recreates the table in one transaction.
func (s *Store) Build(ctx context.Context, docs []index.Document) (index.Handle, error) {
	rows := make([]PlaceDocument, len(docs))
	for i, d := range docs {
		rows[i] = PlaceDocument{
			ID:        d.ID,
			Content:   d.Content,
			Place:     d.Metadata["place"],
			Location:  d.Metadata["location"],
			Embedding: pgvector.NewVector(d.Embedding),
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := DropDocuments(ctx, tx); err != nil {
			return err
		}
		if err := InitDB(ctx, tx); err != nil {
			return err
		}
		return StoreDocuments(ctx, tx, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build pgvector index: %w", models.ErrPersistence, err)
	}

	s.count = len(rows)
	log.Info().Int("documents", s.count).Msg("Stored documents in pgvector")
	return s, nil
}

// Load fails if the places table does not exist.
func (s *Store) Load(ctx context.Context) (index.Handle, error) {
	n, err := s.db.NewSelect().Model((*PlaceDocument)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pgvector index: %w", models.ErrPersistence, err)
	}
	s.count = n
	log.Info().Int("documents", n).Msg("Loaded pgvector index")
	return s, nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]index.Result, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if k <= 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(embedding)
	var docs []PlaceDocument
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "content").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]index.Result, len(docs))
	for i, d := range docs {
		out[i] = index.Result{ID: d.ID, Content: d.Content, Similarity: d.Similarity}
	}
	return out, nil
}

func (s *Store) Count() int { return s.count }

func (s *Store) Close() error { return s.db.Close() }
