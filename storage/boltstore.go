package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketState  = []byte("state")
	bucketEvents = []byte("events")

	keyCurrent = []byte("current")
	keyVersion = []byte("version")
)

// BoltStore persists state snapshots and the event log in a bbolt database.
// Snapshots are compressed with the store's scheme, GZIP by default.
type BoltStore struct {
	db          *bbolt.DB
	compression Compression
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

// WithCompression selects the scheme used for newly written snapshots.
func WithCompression(c Compression) BoltOption {
	return func(s *BoltStore) { s.compression = c }
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string, opts ...BoltOption) (*BoltStore, error) {
	s := &BoltStore{compression: CompressGZIP}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := Compress(nil, s.compression); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketState, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create buckets: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// uint64Key encodes n as an 8-byte big-endian key for sorted storage.
func uint64Key(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// Load returns the latest committed state.
func (s *BoltStore) Load() (*State, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketState).Get(keyCurrent)
		if raw == nil {
			return ErrNotFound
		}
		// bbolt values are only valid for the life of the transaction.
		data = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	data, err = unpackSnapshot(data)
	if err != nil {
		return nil, err
	}
	return DecodeState(data)
}

// Commit writes the snapshot and its events in a single bbolt transaction.
func (s *BoltStore) Commit(state *State, events []Event) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	data, err = packSnapshot(data, s.compression)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketState)
		if v := sb.Get(keyVersion); v != nil {
			have := binary.BigEndian.Uint64(v)
			if state.Version <= have {
				return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, have, state.Version)
			}
		}
		if err := sb.Put(keyCurrent, data); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		if err := sb.Put(keyVersion, uint64Key(state.Version)); err != nil {
			return fmt.Errorf("boltstore: put version: %w", err)
		}

		eb := tx.Bucket(bucketEvents)
		for i := range events {
			seq, err := eb.NextSequence()
			if err != nil {
				return fmt.Errorf("boltstore: event sequence: %w", err)
			}
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(&events[i]); err != nil {
				return fmt.Errorf("boltstore: encode event: %w", err)
			}
			if err := eb.Put(uint64Key(seq), buf.Bytes()); err != nil {
				return fmt.Errorf("boltstore: put event: %w", err)
			}
		}
		return nil
	})
}

// Events returns committed events from fromVersion onwards.
func (s *BoltStore) Events(fromVersion uint64) ([]Event, error) {
	var out []Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var ev Event
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&ev); err != nil {
				return fmt.Errorf("boltstore: decode event: %w", err)
			}
			if ev.StateVersion >= fromVersion {
				out = append(out, ev)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list events: %w", err)
	}
	return out, nil
}
