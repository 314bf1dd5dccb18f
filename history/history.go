// Package history keeps a bbolt-backed log of played media, newest first.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vidplay-cli/vidplay/where"
	"go.etcd.io/bbolt"
)

var bucket = []byte("history")

// keyLayout is RFC 3339 with fixed-width nanoseconds so that keys sort chronologically.
const keyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a history database. Keys are "<time>:<uri>" so a cursor walks entries in play order.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history bucket: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func key(t time.Time, uri string) []byte {
	return []byte(t.UTC().Format(keyLayout) + ":" + uri)
}

// deleteURI removes any entry recorded for uri.
func deleteURI(b *bbolt.Bucket, uri string) error {
	var stale [][]byte

	err := b.ForEach(func(k, v []byte) error {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err == nil && entry.URI == uri {
			stale = append(stale, bytes.Clone(k))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Add records entry as the most recent one, replacing an older entry for the same URI.
// A zero PlayedAt is set to the current time.
func (s *Store) Add(entry Entry) error {
	if entry.URI == "" {
		return errors.New("history entry without uri")
	}
	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = s.now()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if err := deleteURI(b, entry.URI); err != nil {
			return err
		}
		return b.Put(key(entry.PlayedAt, entry.URI), value)
	})
}

// List returns up to limit entries, newest first. A non-positive limit returns everything.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(entries) < limit); k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode history entry %q: %w", k, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Prune keeps the newest keep entries and deletes the rest. It returns the number deleted.
func (s *Store) Prune(keep int) (int, error) {
	var deleted int

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			keys = append(keys, bytes.Clone(k))
		}
		if len(keys) <= max(keep, 0) {
			return nil
		}

		for _, k := range keys[max(keep, 0):] {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}

// Clear deletes every entry.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucket)
		return err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds entry to the default database and trims it to keep entries.
func Record(entry Entry, keep int) error {
	store, err := Open(where.History())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Add(entry); err != nil {
		return err
	}

	if keep > 0 {
		_, err = store.Prune(keep)
	}
	return err
}
