package main

import (
	"context"
	"flag"

	"github.com/rs/zerolog/log"

	"tourism-rag/internal/config"
	"tourism-rag/internal/embedding"
	"tourism-rag/internal/helper"
	"tourism-rag/internal/index/engine"
	"tourism-rag/internal/indexer"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	dryRun := flag.Bool("dry-run", false, "Dry run, print the rendered blobs without embedding or writing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.LogLevel)

	if *dryRun {
		blobs, err := indexer.New(cfg, nil, nil).DryRun()
		if err != nil {
			log.Fatal().Err(err).Msg("Error parsing dataset")
		}
		log.Info().Int("blobs", len(blobs)).Msg("Dry run complete")
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := context.Background()
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	defer embedder.Close()

	e, err := engine.New(cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing index engine")
	}

	if _, err := indexer.New(cfg, embedder, e).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error building index")
	}
}
