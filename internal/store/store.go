// Package store caches retrieved SBD messages in a local bbolt database so
// the feed server can recompile series without re-querying the SWIFT server.
// One bucket per buoy id, keyed by the message's archive file name, which
// makes repeated pulls naturally idempotent.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// Store is a local archive cache of raw messages.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// storedMessage is the bucket value; the payload round-trips through JSON
// as base64.
type storedMessage struct {
	Captured time.Time `json:"captured"`
	Payload  []byte    `json:"payload"`
}

// Put stores messages under their buoy's bucket, skipping names already
// present. Returns the messages that were actually new, preserving their
// input order.
func (s *Store) Put(msgs []sbd.RawMessage) ([]sbd.RawMessage, error) {
	var added []sbd.RawMessage
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, m := range msgs {
			if m.BuoyID == "" || m.Name == "" {
				continue
			}
			b, err := tx.CreateBucketIfNotExists([]byte(m.BuoyID))
			if err != nil {
				return err
			}
			if b.Get([]byte(m.Name)) != nil {
				continue
			}
			val, err := json.Marshal(storedMessage{Captured: m.Captured, Payload: m.Payload})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(m.Name), val); err != nil {
				return err
			}
			added = append(added, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store messages: %w", err)
	}
	return added, nil
}

// Messages loads every cached message for the buoy captured within
// [start, end]. A zero end means "no upper bound".
func (s *Store) Messages(buoyID string, start, end time.Time) ([]sbd.RawMessage, error) {
	var msgs []sbd.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(buoyID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var sm storedMessage
			if err := json.Unmarshal(v, &sm); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", k, err)
			}
			if sm.Captured.Before(start) {
				return nil
			}
			if !end.IsZero() && sm.Captured.After(end) {
				return nil
			}
			msgs = append(msgs, sbd.RawMessage{
				Name:     string(k),
				BuoyID:   buoyID,
				Captured: sm.Captured,
				Payload:  sm.Payload,
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load messages for buoy %s: %w", buoyID, err)
	}
	return msgs, nil
}

// Count returns the number of cached messages for the buoy.
func (s *Store) Count(buoyID string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket([]byte(buoyID)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Buoys lists every buoy id with cached messages.
func (s *Store) Buoys() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			ids = append(ids, string(name))
			return nil
		})
	})
	return ids, err
}
