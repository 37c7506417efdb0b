package usecase

import (
	"context"
	"errors"

	"semanticportal/internal/adapter/autocomplete"
	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.Suggester = (*SuggestUseCase)(nil)

// SuggestUseCase answers autocomplete queries from the cached index.
type SuggestUseCase struct {
	cache *autocomplete.Cache
	limit int
}

func NewSuggestUseCase(cache *autocomplete.Cache, limit int) *SuggestUseCase {
	if limit <= 0 {
		limit = 5
	}
	return &SuggestUseCase{cache: cache, limit: limit}
}

// Suggest returns up to limit previews. A failed rebuild is returned, not
// hidden behind an empty list.
func (u *SuggestUseCase) Suggest(ctx context.Context, query string) ([]string, error) {
	index, err := u.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return index.Search(query, u.limit), nil
}

// Invalidate drops the cached index.
func (u *SuggestUseCase) Invalidate() {
	u.cache.Invalidate()
}

// CollectionLoader reads the whole collection for an autocomplete rebuild. A
// collection that does not exist yet loads as empty.
func CollectionLoader(store port.VectorStore, collection string) autocomplete.Loader {
	return func(ctx context.Context) ([]domain.StoredDocument, error) {
		docs, err := store.GetAll(ctx, collection)
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, nil
		}
		return docs, err
	}
}
