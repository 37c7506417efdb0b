package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.VectorStore = (*BoltStore)(nil)

var (
	bucketMeta        = []byte("meta")
	bucketCollections = []byte("collections")
	bucketEntries     = []byte("entries")
	bucketIDs         = []byte("ids")
	keyDimension      = []byte("dimension")
)

// BoltStore is a single-file vector store. Each collection is a nested bucket
// holding its entries keyed by insertion sequence and an id index. Vectors are
// mirrored in memory per collection for brute-force search.
type BoltStore struct {
	db *bbolt.DB

	mu      sync.RWMutex
	vectors map[string][]vectorEntry
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db: %w", domain.ErrVectorStoreUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketCollections} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}

	s := &BoltStore{
		db:      db,
		vectors: make(map[string][]vectorEntry),
	}

	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

// EnsureCollection creates the collection buckets if they are missing.
func (s *BoltStore) EnsureCollection(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty collection name", domain.ErrVectorStore)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		coll, err := tx.Bucket(bucketCollections).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if _, err := coll.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err = coll.CreateBucketIfNotExists(bucketIDs)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %w", domain.ErrVectorStore, name, err)
	}
	return nil
}

// Collections lists collection names with their entry counts.
func (s *BoltStore) Collections() (map[string]int, error) {
	out := make(map[string]int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		return root.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			out[string(k)] = root.Bucket(k).Bucket(bucketIDs).Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func collectionBucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	coll := tx.Bucket(bucketCollections).Bucket([]byte(name))
	if coll == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return coll, nil
}
