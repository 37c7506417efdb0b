package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.etcd.io/bbolt"

	"semanticportal/internal/domain"
)

type vectorEntry struct {
	id       string
	text     string
	vector   []float32
	metadata map[string]string
}

type storedEntry struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// Add writes all entries in one transaction. A duplicate id or a dimension
// different from the collection's aborts the whole batch.
func (s *BoltStore) Add(_ context.Context, collection string, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(collection); err != nil {
		return err
	}

	added := make([]vectorEntry, 0, len(entries))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		coll, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		data, ids := coll.Bucket(bucketEntries), coll.Bucket(bucketIDs)

		dim := 0
		if raw := coll.Get(keyDimension); raw != nil {
			d, err := strconv.Atoi(string(raw))
			if err != nil || d <= 0 {
				return fmt.Errorf("%w: corrupt dimension %q: %v", domain.ErrVectorStore, raw, err)
			}
			dim = d
		}
		if dim == 0 {
			dim = len(entries[0].Embedding)
			if err := coll.Put(keyDimension, []byte(strconv.Itoa(dim))); err != nil {
				return err
			}
		}

		for _, e := range entries {
			if len(e.Embedding) != dim {
				return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dim, len(e.Embedding))
			}
			if ids.Get([]byte(e.ID)) != nil {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)
			}

			seq, err := data.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)

			value, err := json.Marshal(storedEntry{ID: e.ID, Vector: e.Embedding, Text: e.Text, Metadata: e.Metadata})
			if err != nil {
				return err
			}
			if err := data.Put(key, value); err != nil {
				return err
			}
			if err := ids.Put([]byte(e.ID), key); err != nil {
				return err
			}

			added = append(added, vectorEntry{id: e.ID, text: e.Text, vector: e.Embedding, metadata: e.Metadata})
		}
		return nil
	})
	if err != nil {
		return wrapBolt(err)
	}

	s.vectors[collection] = append(s.vectors[collection], added...)
	return nil
}

// Query ranks every entry of the collection by cosine distance to vector.
func (s *BoltStore) Query(_ context.Context, collection string, vector []float32, topK int) ([]domain.QueryHit, error) {
	s.mu.Lock()
	entries, err := s.load(collection)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(vector) != len(entries[0].vector) {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(vector), len(entries[0].vector))
	}

	hits := make([]domain.QueryHit, len(entries))
	for i, e := range entries {
		hits[i] = domain.QueryHit{
			ID:       e.id,
			Text:     e.text,
			Distance: CosineDistance(vector, e.vector),
			Metadata: e.metadata,
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// GetAll returns the collection's documents in insertion order.
func (s *BoltStore) GetAll(_ context.Context, collection string) ([]domain.StoredDocument, error) {
	var docs []domain.StoredDocument
	err := s.db.View(func(tx *bbolt.Tx) error {
		coll, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		return coll.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry: %w", err)
			}
			docs = append(docs, domain.StoredDocument{ID: stored.ID, Text: stored.Text, Metadata: stored.Metadata})
			return nil
		})
	})
	if err != nil {
		return nil, wrapBolt(err)
	}
	return docs, nil
}

// load returns the in-memory mirror of a collection, reading it from disk on
// first use. Callers hold s.mu.
func (s *BoltStore) load(collection string) ([]vectorEntry, error) {
	if entries, ok := s.vectors[collection]; ok {
		return entries, nil
	}

	entries := []vectorEntry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		coll, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		return coll.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry: %w", err)
			}
			entries = append(entries, vectorEntry{
				id:       stored.ID,
				text:     stored.Text,
				vector:   stored.Vector,
				metadata: stored.Metadata,
			})
			return nil
		})
	})
	if err != nil {
		return nil, wrapBolt(err)
	}

	s.vectors[collection] = entries
	return entries, nil
}

// wrapBolt keeps taxonomy errors and tags everything else as a store error.
func wrapBolt(err error) error {
	if errors.Is(err, domain.ErrVectorStore) || errors.Is(err, domain.ErrDuplicateID) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
}

// CosineDistance returns 1 - cosine similarity, so 0 means same direction.
func CosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
