package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"semanticportal/internal/adapter/autocomplete"
	"semanticportal/internal/adapter/store"
	"semanticportal/internal/domain"
)

func seededStore(t *testing.T) *recordingStore {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	if err := mem.EnsureCollection(ctx, testCollection); err != nil {
		t.Fatal(err)
	}
	texts := []string{"apples and pears", "bananas are yellow", "cherries in june"}
	entries := make([]domain.IndexedEntry, len(texts))
	for i, text := range texts {
		entries[i] = domain.IndexedEntry{
			ID:        fmt.Sprintf("seed-%d", i),
			Embedding: letterVector(text),
			Text:      text,
			Metadata:  map[string]string{domain.MetaPreview: "preview: " + text},
		}
	}
	if err := mem.Add(ctx, testCollection, entries); err != nil {
		t.Fatal(err)
	}
	return &recordingStore{VectorStore: mem}
}

func TestSearch_RanksByDistance(t *testing.T) {
	st := seededStore(t)
	uc := NewSearchUseCase(&fakeEmbedder{}, st, testCollection, 10, time.Second, time.Second)

	results, err := uc.Search(context.Background(), "bananas")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Text != "bananas are yellow" {
		t.Errorf("expected bananas first, got %q", results[0].Text)
	}
	if results[0].Preview != "preview: bananas are yellow" {
		t.Errorf("expected stored preview, got %q", results[0].Preview)
	}
	if results[0].Score > 1e-6 {
		t.Errorf("expected near-zero distance for exact match, got %f", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score < results[i-1].Score {
			t.Errorf("scores not ascending: %v", results)
		}
	}
}

func TestSearch_Idempotent(t *testing.T) {
	st := seededStore(t)
	uc := NewSearchUseCase(&fakeEmbedder{}, st, testCollection, 10, 0, 0)

	first, err := uc.Search(context.Background(), "apples")
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Search(context.Background(), "apples")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected same length, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("expected identical results at %d, got %v and %v", i, first[i], second[i])
		}
	}
}

func TestSearch_TopK(t *testing.T) {
	st := seededStore(t)
	uc := NewSearchUseCase(&fakeEmbedder{}, st, testCollection, 2, 0, 0)

	results, err := uc.Search(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_SurfacesErrors(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		st := seededStore(t)
		uc := NewSearchUseCase(&fakeEmbedder{err: domain.ErrEmbeddingUnavailable}, st, testCollection, 10, 0, 0)
		_, err := uc.Search(context.Background(), "foo")
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
		}
		if len(st.Calls()) != 0 {
			t.Errorf("expected no store call, got %v", st.Calls())
		}
	})

	t.Run("store", func(t *testing.T) {
		st := seededStore(t)
		st.qErr = domain.ErrVectorStoreUnavailable
		uc := NewSearchUseCase(&fakeEmbedder{}, st, testCollection, 10, 0, 0)
		results, err := uc.Search(context.Background(), "foo")
		if !errors.Is(err, domain.ErrVectorStoreUnavailable) {
			t.Errorf("expected ErrVectorStoreUnavailable, got %v", err)
		}
		if results != nil {
			t.Errorf("expected no results, got %v", results)
		}
	})
}

func TestSuggest(t *testing.T) {
	st := seededStore(t)
	cache := autocomplete.NewCache(func(ctx context.Context) ([]domain.StoredDocument, error) {
		return st.GetAll(ctx, testCollection)
	}, autocomplete.DefaultThreshold, time.Second)
	uc := NewSuggestUseCase(cache, 5)

	got, err := uc.Suggest(context.Background(), "banan")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "preview: bananas are yellow" {
		t.Errorf("expected banana preview, got %v", got)
	}
}

func TestSuggest_RebuildFailure(t *testing.T) {
	cache := autocomplete.NewCache(func(ctx context.Context) ([]domain.StoredDocument, error) {
		return nil, domain.ErrVectorStoreUnavailable
	}, autocomplete.DefaultThreshold, time.Second)
	uc := NewSuggestUseCase(cache, 5)

	_, err := uc.Suggest(context.Background(), "anything")
	if !errors.Is(err, domain.ErrAutocompleteRebuild) || !errors.Is(err, domain.ErrVectorStoreUnavailable) {
		t.Errorf("expected rebuild failure wrapping store error, got %v", err)
	}
}

func TestSearch_MissingCollectionIsEmpty(t *testing.T) {
	uc := NewSearchUseCase(&fakeEmbedder{}, store.NewMemoryStore(), testCollection, 10, 0, 0)

	results, err := uc.Search(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestCollectionLoader(t *testing.T) {
	mem := store.NewMemoryStore()
	load := CollectionLoader(mem, testCollection)

	docs, err := load(context.Background())
	if err != nil {
		t.Fatalf("expected missing collection to load as empty, got %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}

	if _, err := CollectionLoader(unavailableStore{}, testCollection)(context.Background()); !errors.Is(err, domain.ErrVectorStoreUnavailable) {
		t.Errorf("expected store failure to surface, got %v", err)
	}
}

type unavailableStore struct {
	*store.MemoryStore
}

func (unavailableStore) GetAll(context.Context, string) ([]domain.StoredDocument, error) {
	return nil, domain.ErrVectorStoreUnavailable
}
