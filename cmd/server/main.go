package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/fx"

	"tourism-rag/internal/config"
	"tourism-rag/internal/embedding"
	"tourism-rag/internal/helper"
	"tourism-rag/internal/index"
	"tourism-rag/internal/index/engine"
	"tourism-rag/internal/llmservice"
	"tourism-rag/internal/memory"
	"tourism-rag/internal/models"
	"tourism-rag/internal/rag"
	"tourism-rag/internal/server"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	if err := cfg.ValidateInference(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	app := fx.New(
		fx.NopLogger,
		fx.StopTimeout(cfg.Server.ShutdownTimeout),
		fx.Supply(cfg),
		fx.Provide(
			ProvideEmbedder,
			ProvideIndex,
			ProvideModel,
			ProvideSessions,
			ProvideRAG,
			ProvideRouter,
		),
		fx.Invoke(StartServer),
	)
	// index load and client setup run during construction, so a missing index stops us here
	if err := app.Err(); err != nil {
		log.Fatal().Err(err).Msg("Error starting query service")
	}

	app.Run()
}

func ProvideEmbedder(lc fx.Lifecycle, cfg *config.Config) (embeddings.Embedder, error) {
	embedder, err := embedding.NewEmbedder(context.Background(), &cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	CloseOnStop(lc, embedder)
	return embedder, nil
}

func ProvideIndex(lc fx.Lifecycle, cfg *config.Config, embedder embeddings.Embedder) (index.Handle, error) {
	e, err := engine.New(cfg, embedder)
	if err != nil {
		return nil, err
	}
	handle, manifest, err := engine.Open(context.Background(), cfg, e)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("engine", manifest.Engine).
		Str("embedding_model", manifest.EmbeddingModel).
		Int("documents", handle.Count()).
		Time("built_at", manifest.BuiltAt).
		Msg("Index loaded")

	CloseOnStop(lc, handle)
	return handle, nil
}

func ProvideModel(lc fx.Lifecycle, cfg *config.Config) (llmservice.Model, error) {
	model, err := llmservice.NewModel(context.Background(), &cfg.InferLLM)
	if err != nil {
		return nil, err
	}
	CloseOnStop(lc, model)
	return model, nil
}

// CloseOnStop closes v when the app stops, if it holds resources.
func CloseOnStop(lc fx.Lifecycle, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
}

func ProvideSessions(lc fx.Lifecycle, cfg *config.Config) *memory.Store {
	store := memory.NewStore(models.MemoryWindow)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go store.RunPruner(ctx, cfg.Memory.PruneInterval, cfg.Memory.SessionTTL)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return store
}

func ProvideRAG(cfg *config.Config, embedder embeddings.Embedder, handle index.Handle, model llmservice.Model, sessions *memory.Store) *rag.RAG {
	return rag.NewRAG(embedder, handle, model, sessions, rag.WithClearHistory(cfg.RAG.ClearHistoryOnCall))
}

func ProvideRouter(cfg *config.Config, r *rag.RAG) *gin.Engine {
	return server.NewRouter(server.NewHandler(r), cfg.Server.Mode)
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Failed to serve")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
