package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"semanticportal/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// SchemaVersion returns the version recorded in the database, 0 when unset.
func (s *BoltStore) SchemaVersion() (int, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &version)
	})
	return version, err
}

func (s *BoltStore) setSchemaVersion(version int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(version)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, data)
	})
}

// checkSchema stamps a new database and refuses one written by a newer version.
func (s *BoltStore) checkSchema() error {
	version, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("%w: failed to read schema version: %w", domain.ErrVectorStore, err)
	}

	switch {
	case version > CurrentSchemaVersion:
		return fmt.Errorf("%w: database created by newer version (v%d > v%d)", domain.ErrVectorStore, version, CurrentSchemaVersion)
	case version < CurrentSchemaVersion:
		for v := version; v < CurrentSchemaVersion; v++ {
			if err := s.runMigration(v, v+1); err != nil {
				return fmt.Errorf("%w: migration from v%d to v%d failed: %w", domain.ErrVectorStore, v, v+1, err)
			}
		}
		return s.setSchemaVersion(CurrentSchemaVersion)
	}
	return nil
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		// Fresh database; buckets are created on open.
		return nil
	default:
		return fmt.Errorf("no migration path from v%d to v%d", from, to)
	}
}
