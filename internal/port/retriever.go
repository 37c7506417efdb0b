package port

import (
	"context"

	"semanticportal/internal/domain"
)

// Searcher answers a free-text query with ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Suggester returns autocomplete previews for a partial query.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Invalidator drops derived state after the underlying collection changed.
type Invalidator interface {
	Invalidate()
}
