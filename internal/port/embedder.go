package port

import (
	"context"

	"semanticportal/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists indexed entries in named collections and answers
// nearest-neighbour queries.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(ctx context.Context, name string) error

	// Add appends entries. Ids must be unique within the collection.
	Add(ctx context.Context, collection string, entries []domain.IndexedEntry) error

	// Query returns at most topK hits ordered by ascending distance.
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.QueryHit, error)

	// GetAll returns every document in the collection.
	GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error)

	Close() error
}
