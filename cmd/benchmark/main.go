package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"semanticportal/config"
	"semanticportal/internal/adapter/embedding"
	"semanticportal/internal/adapter/store"
	"semanticportal/internal/port"
	"semanticportal/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "directory holding .portal/vectors.db")
	query := flag.String("q", "", "query to test")
	topK := flag.Int("k", 10, "number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./tmp -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Embedding round trip (model connection, latency)")
		fmt.Println("  2. Semantic similarity of the top results")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		os.Exit(1)
	}

	path := cfg.VectorStore.Path
	if path == "" {
		path = config.StorePath(*dir)
	}
	st, err := store.NewBoltStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	counts, err := st.Collections()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading collections: %v\n", err)
		os.Exit(1)
	}
	count := counts[cfg.VectorStore.Collection]
	if count == 0 {
		fmt.Fprintf(os.Stderr, "Collection %q is empty - run 'portal ingest' with vector_store.backend=bolt\n", cfg.VectorStore.Collection)
		os.Exit(1)
	}

	embedder, err := setupEmbedder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Entries stored: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	search := usecase.NewSearchUseCase(embedder, st, cfg.VectorStore.Collection, *topK, cfg.Timeouts.Embed, cfg.Timeouts.VectorStore)

	start := time.Now()
	results, err := search.Search(context.Background(), *query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Search took %s\n\n", time.Since(start).Round(time.Millisecond))

	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := strings.ReplaceAll(r.Preview, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		similarity := 1 - r.Score
		totalScore += similarity

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f]\n", i+1, rating, similarity)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", 1-results[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need a better embedding model or smaller chunks")
	}
}

func setupEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "http":
		return embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			URL:     ec.URL,
			Model:   ec.Model,
			Timeout: cfg.Timeouts.Embed,
		}), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(ec.Model, "", cfg.Timeouts.Embed), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, cfg.Timeouts.Embed)
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ec.Provider)
	}
}
