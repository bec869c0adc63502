package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	pendingBucket = []byte("pending")
	deadBucket    = []byte("dead")
)

// Store persists buffered writes in BoltDB. Items live in the pending bucket
// until replayed; items that exhaust their retries move to the dead bucket so
// an operator can inspect them.
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures both buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create buffer dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open buffer: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{pendingBucket, deadBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Enqueue stores item under a priority-ordered key.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()

	return s.db.Update(func(tx *bolt.Tx) error {
		pending := tx.Bucket(pendingBucket)
		seq, err := pending.NextSequence()
		if err != nil {
			return err
		}
		item.key = itemKey(item, seq)
		payload, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return pending.Put(item.key, payload)
	})
}

// Peek returns up to limit pending items in drain order without removing them.
// Entries that no longer decode are moved to the dead bucket on the way.
func (s *Store) Peek(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := s.db.Update(func(tx *bolt.Tx) error {
		pending := tx.Bucket(pendingBucket)
		var corrupt [][]byte
		c := pending.Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			item, err := decodeItem(k, v)
			if err != nil {
				corrupt = append(corrupt, append([]byte(nil), k...))
				continue
			}
			items = append(items, item)
		}

		dead := tx.Bucket(deadBucket)
		for _, k := range corrupt {
			raw := append([]byte(nil), pending.Get(k)...)
			if err := dead.Put(k, raw); err != nil {
				return err
			}
			if err := pending.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return items, err
}

// Pending reports whether an earlier write to the same subject still waits
// in the buffer.
func (s *Store) Pending(subjectKey string) (bool, error) {
	if s == nil || s.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	if subjectKey == "" {
		return false, nil
	}
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).ForEach(func(k, v []byte) error {
			item, err := decodeItem(k, v)
			if err == nil && item.SubjectKey() == subjectKey {
				found = true
				return errStopScan
			}
			return nil
		})
	})
	if errors.Is(err, errStopScan) {
		err = nil
	}
	return found, err
}

// DeadLetters returns up to limit items that exhausted their retries.
func (s *Store) DeadLetters(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	return s.scan(deadBucket, limit)
}

// Ack removes a successfully replayed item.
func (s *Store) Ack(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(item.key)
	})
}

// Retry records a failed attempt. The item keeps its position in the queue,
// or moves to the dead bucket once maxRetries attempts have failed. It
// reports whether the item was dead-lettered.
func (s *Store) Retry(item Item, cause error, maxRetries int) (bool, error) {
	if s == nil || s.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	if len(item.key) == 0 {
		return false, errors.New("buffer item has no storage key")
	}
	item.Retries++
	if cause != nil {
		item.LastError = cause.Error()
	}
	item.FailedAt = time.Now()
	dead := maxRetries > 0 && item.Retries >= maxRetries

	payload, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if !dead {
			return tx.Bucket(pendingBucket).Put(item.key, payload)
		}
		if err := tx.Bucket(pendingBucket).Delete(item.key); err != nil {
			return err
		}
		return tx.Bucket(deadBucket).Put(item.key, payload)
	})
	return dead, err
}

// Size returns the number of pending items.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(pendingBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup drops dead letters older than olderThan and returns how many were removed.
func (s *Store) Cleanup(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(deadBucket).Cursor()
		for k, v := c.First(); k != nil; {
			var item Item
			if err := json.Unmarshal(v, &item); err == nil && !item.deadSince().Before(olderThan) {
				k, v = c.Next()
				continue
			}
			deleted := append([]byte(nil), k...)
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
			// Delete invalidates the cursor position; reposition on the next key.
			k, v = c.Seek(deleted)
		}
		return nil
	})
	return removed, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) scan(bucket []byte, limit int) ([]Item, error) {
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.First(); k != nil && (limit <= 0 || len(items) < limit); k, v = c.Next() {
			item, err := decodeItem(k, v)
			if err != nil {
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

var errStopScan = errors.New("stop scan")

func decodeItem(k, v []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(v, &item); err != nil {
		return Item{}, err
	}
	item.key = append([]byte(nil), k...)
	return item, nil
}

// itemKey orders by priority, then enqueue time, then a per-store sequence
// that breaks timestamp ties.
func itemKey(item Item, seq uint64) []byte {
	return []byte(fmt.Sprintf("%d_%020d_%020d_%s", item.Priority, item.Timestamp.UnixNano(), seq, item.ID))
}
