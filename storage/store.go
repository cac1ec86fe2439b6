package storage

import (
	"fmt"
	"sync"
)

// Store persists committed state snapshots and the event log.
type Store interface {
	// Load returns the latest committed state, or ErrNotFound if nothing
	// has been committed yet.
	Load() (*State, error)

	// Commit atomically persists a state snapshot together with the events
	// produced by the operation that created it. The snapshot version must
	// be greater than the last committed version.
	Commit(state *State, events []Event) error

	// Events returns committed events with StateVersion >= fromVersion, in order.
	Events(fromVersion uint64) ([]Event, error)

	// Close releases the store.
	Close() error
}

// MemStore is an in-memory Store. Snapshots are kept encoded so later
// mutation of a committed *State cannot leak into the store.
type MemStore struct {
	mu      sync.RWMutex
	data    []byte
	version uint64
	events  []Event
	closed  bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// Load returns the latest committed state.
func (m *MemStore) Load() (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return DecodeState(m.data)
}

// Commit stores a snapshot and appends its events.
func (m *MemStore) Commit(state *State, events []Event) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}

	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.data != nil && state.Version <= m.version {
		return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, m.version, state.Version)
	}
	m.data = data
	m.version = state.Version
	m.events = append(m.events, events...)
	return nil
}

// Events returns committed events from fromVersion onwards.
func (m *MemStore) Events(fromVersion uint64) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		if ev.StateVersion >= fromVersion {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
