package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"semanticportal/internal/adapter/embedding"
	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.Searcher = (*SearchUseCase)(nil)

// SearchUseCase embeds a query and ranks stored chunks by distance.
type SearchUseCase struct {
	embedder     port.Embedder
	store        port.VectorStore
	collection   string
	topK         int
	embedTimeout time.Duration
	storeTimeout time.Duration
}

func NewSearchUseCase(
	embedder port.Embedder,
	store port.VectorStore,
	collection string,
	topK int,
	embedTimeout, storeTimeout time.Duration,
) *SearchUseCase {
	if topK <= 0 {
		topK = 10
	}
	return &SearchUseCase{
		embedder:     embedder,
		store:        store,
		collection:   collection,
		topK:         topK,
		embedTimeout: embedTimeout,
		storeTimeout: storeTimeout,
	}
}

// Search returns at most topK results ordered by ascending distance. The
// query is embedded as given, including the empty string. Failures of either
// collaborator are returned as is.
func (u *SearchUseCase) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vector, err := u.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := u.query(ctx, vector)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		// Nothing has been ingested yet.
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > u.topK {
		hits = hits[:u.topK]
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		preview, ok := h.Metadata[domain.MetaPreview]
		if !ok {
			preview = h.Text
		}
		results[i] = domain.SearchResult{
			Text:    h.Text,
			Score:   h.Distance,
			Preview: preview,
		}
	}
	return results, nil
}

func (u *SearchUseCase) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, u.embedTimeout)
	defer cancel()
	return embedding.EmbedQuery(ctx, u.embedder, query)
}

func (u *SearchUseCase) query(ctx context.Context, vector []float32) ([]domain.QueryHit, error) {
	ctx, cancel := withTimeout(ctx, u.storeTimeout)
	defer cancel()
	return u.store.Query(ctx, u.collection, vector, u.topK)
}
