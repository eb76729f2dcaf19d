package state

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const flagBucketName = "flags"

// FlagStore persists the set of document paths marked for manual review.
type FlagStore interface {
	// Toggle flips the flag for a document path and returns the new state
	Toggle(path string) (bool, error)

	// List returns all flagged document paths
	List() (map[string]struct{}, error)

	// Close closes the store
	Close() error
}

// BoltFlagStore implements FlagStore using BoltDB
type BoltFlagStore struct {
	db *bbolt.DB
}

// NewBoltFlagStore opens (or creates) a flag store at path
func NewBoltFlagStore(path string) (*BoltFlagStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(flagBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltFlagStore{db: db}, nil
}

// Toggle flips the flag for a document path and returns the new state
func (s *BoltFlagStore) Toggle(path string) (bool, error) {
	var flagged bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(flagBucketName))
		key := []byte(path)
		if bucket.Get(key) != nil {
			flagged = false
			return bucket.Delete(key)
		}
		flagged = true
		return bucket.Put(key, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return false, fmt.Errorf("toggling flag: %w", err)
	}
	return flagged, nil
}

// List returns all flagged document paths
func (s *BoltFlagStore) List() (map[string]struct{}, error) {
	flagged := make(map[string]struct{})
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(flagBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			flagged[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	return flagged, nil
}

// Close closes the store
func (s *BoltFlagStore) Close() error {
	return s.db.Close()
}
