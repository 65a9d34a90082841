package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const triggerBucket = "triggers"

// TriggerStore persists registered triggers so they survive a restart.
type TriggerStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenTriggerStore opens (or creates) the Bolt file at path.
func OpenTriggerStore(path string) (*TriggerStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create trigger store dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open trigger store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(triggerBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trigger bucket: %w", err)
	}

	return &TriggerStore{db: db, bucket: []byte(triggerBucket)}, nil
}

func (s *TriggerStore) Put(trigger Trigger) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(trigger.ID), payload)
	})
}

func (s *TriggerStore) Delete(id string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
}

// DeleteAll empties the bucket.
func (s *TriggerStore) DeleteAll() error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

// List returns every stored trigger in key order. Undecodable values are
// skipped.
func (s *TriggerStore) List() ([]Trigger, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var triggers []Trigger
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			var t Trigger
			if err := json.Unmarshal(v, &t); err != nil {
				return nil
			}
			triggers = append(triggers, t)
			return nil
		})
	})
	return triggers, err
}

func (s *TriggerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
