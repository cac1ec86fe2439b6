package storage

import "errors"

var (
	// ErrNotFound indicates no entry occupies the requested slot.
	ErrNotFound = errors.New("storage: entry not found")

	// ErrCorruptState indicates the persisted state could not be encoded or decoded,
	// or an index points at a missing entity.
	ErrCorruptState = errors.New("storage: corrupt state")

	// ErrInvalidSelector indicates a malformed function selector.
	ErrInvalidSelector = errors.New("storage: invalid selector")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("storage: required parameter is nil")

	// ErrStaleVersion indicates a commit was attempted against an older state version.
	ErrStaleVersion = errors.New("storage: stale state version")

	// ErrUnsupportedCompression indicates an unknown snapshot compression scheme.
	ErrUnsupportedCompression = errors.New("storage: unsupported compression scheme")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("storage: store closed")
)
