package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.VectorStore = (*MemoryStore)(nil)

// MemoryStore keeps collections in an in-process chromem-go database. Nothing
// survives a restart.
type MemoryStore struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	coll *chromem.Collection
	dim  int
	ids  map[string]struct{}
	docs []domain.StoredDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*memCollection),
	}
}

// precomputed rejects documents without an embedding.
func precomputed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings must be supplied by the caller")
}

func (s *MemoryStore) EnsureCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return nil
	}
	coll, err := s.db.GetOrCreateCollection(name, nil, precomputed)
	if err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %w", domain.ErrVectorStore, name, err)
	}
	s.collections[name] = &memCollection{coll: coll, ids: make(map[string]struct{})}
	return nil
}

// Add validates the whole batch before inserting any of it.
func (s *MemoryStore) Add(ctx context.Context, collection string, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	dim := mc.dim
	if dim == 0 {
		dim = len(entries[0].Embedding)
	}
	batch := make(map[string]struct{}, len(entries))
	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dim, len(e.Embedding))
		}
		if _, dup := mc.ids[e.ID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)
		}
		if _, dup := batch[e.ID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)
		}
		batch[e.ID] = struct{}{}

		// chromem normalizes embeddings in place.
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  e.Metadata,
			Embedding: vec,
			Content:   e.Text,
		}
	}

	if err := mc.coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}

	mc.dim = dim
	for _, e := range entries {
		mc.ids[e.ID] = struct{}{}
		mc.docs = append(mc.docs, domain.StoredDocument{ID: e.ID, Text: e.Text, Metadata: e.Metadata})
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.QueryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mc, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	n := mc.coll.Count()
	if n == 0 || topK <= 0 {
		return nil, nil
	}
	if len(vector) != mc.dim {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(vector), mc.dim)
	}
	if topK > n {
		topK = n
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	results, err := mc.coll.QueryEmbedding(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}

	hits := make([]domain.QueryHit, len(results))
	for i, r := range results {
		hits[i] = domain.QueryHit{
			ID:       r.ID,
			Text:     r.Content,
			Distance: 1 - float64(r.Similarity),
			Metadata: r.Metadata,
		}
	}
	return hits, nil
}

func (s *MemoryStore) GetAll(_ context.Context, collection string) ([]domain.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mc, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	docs := make([]domain.StoredDocument, len(mc.docs))
	copy(docs, mc.docs)
	return docs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
