package cli

import (
	"fmt"

	"semanticportal/config"
	"semanticportal/internal/adapter/autocomplete"
	"semanticportal/internal/adapter/cache"
	"semanticportal/internal/adapter/chunker"
	"semanticportal/internal/adapter/embedding"
	"semanticportal/internal/adapter/extractor"
	"semanticportal/internal/adapter/store"
	"semanticportal/internal/port"
	"semanticportal/internal/usecase"
)

// app holds the wired pipeline for one process.
type app struct {
	store    port.VectorStore
	embedder port.Embedder
	ingest   *usecase.IngestUseCase
	search   port.Searcher
	suggest  *usecase.SuggestUseCase
}

func newApp(cfg *config.Config, dir string) (*app, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := newStore(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	collection := cfg.VectorStore.Collection

	ac := autocomplete.NewCache(
		usecase.CollectionLoader(st, collection),
		cfg.Autocomplete.Threshold,
		cfg.Timeouts.AutocompleteRebuild,
	)
	suggest := usecase.NewSuggestUseCase(ac, cfg.Autocomplete.Limit)

	invalidators := []port.Invalidator{suggest}
	var search port.Searcher = usecase.NewSearchUseCase(
		embedder,
		st,
		collection,
		cfg.Search.TopK,
		cfg.Timeouts.Embed,
		cfg.Timeouts.VectorStore,
	)
	if cfg.Search.CacheSize > 0 {
		cached := cache.NewCachedSearcher(search, cache.NewQueryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL))
		invalidators = append(invalidators, cached)
		search = cached
	}

	ingest := usecase.NewIngestUseCase(
		newExtractor(cfg),
		chunker.NewCharChunker(cfg.Chunking.PreviewLength),
		embedder,
		st,
		usecase.IngestOptions{
			Collection:     collection,
			ChunkSize:      cfg.Chunking.Size,
			ChunkOverlap:   cfg.Chunking.Overlap,
			ExtractTimeout: cfg.Timeouts.Extract,
			EmbedTimeout:   cfg.Timeouts.Embed,
			StoreTimeout:   cfg.Timeouts.VectorStore,
		},
		invalidators...,
	)

	return &app{
		store:    st,
		embedder: embedder,
		ingest:   ingest,
		search:   search,
		suggest:  suggest,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "http":
		return embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			URL:               ec.URL,
			Model:             ec.Model,
			BatchSize:         ec.BatchSize,
			Timeout:           cfg.Timeouts.Embed,
			RequestsPerSecond: ec.RequestsPerSecond,
			Burst:             ec.Burst,
		}), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, cfg.Timeouts.Embed)
	case "ollama":
		baseURL := ec.URL
		if baseURL == embedding.DefaultURL {
			baseURL = ""
		}
		return embedding.NewOllamaEmbedder(ec.Model, baseURL, cfg.Timeouts.Embed), nil
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
}

func newStore(cfg *config.Config, dir string) (port.VectorStore, error) {
	vc := cfg.VectorStore
	switch vc.Backend {
	case "http":
		return store.NewChromaStore(store.ChromaConfig{
			URL:     vc.URL,
			Timeout: cfg.Timeouts.VectorStore,
		}), nil
	case "bolt":
		path := vc.Path
		if path == "" {
			if err := config.EnsurePortalDir(dir); err != nil {
				return nil, fmt.Errorf("failed to create .portal directory: %w", err)
			}
			path = config.StorePath(dir)
		}
		return store.NewBoltStore(path)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", vc.Backend)
	}
}

func newExtractor(cfg *config.Config) port.TextExtractor {
	xc := cfg.Extraction
	return extractor.NewRouter(
		extractor.NewTesseractOCR(extractor.ExecRunner{}, xc.OCRCommand, xc.OCRLanguages),
		extractor.NewPDFReader(),
		extractor.Options{
			FallbackToRaw:  xc.FallbackToRaw,
			RenderMarkdown: xc.RenderMarkdown,
			RejectTypes:    xc.RejectTypes,
		},
	)
}
