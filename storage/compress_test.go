package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("listing snapshot payload "), 100)

	for _, scheme := range []Compression{CompressNone, CompressLZW, CompressGZIP} {
		t.Run(scheme.String(), func(t *testing.T) {
			compressed, err := Compress(data, scheme)
			require.NoError(t, err)

			decompressed, err := Decompress(compressed, scheme)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		})
	}
}

func TestCompress_Empty(t *testing.T) {
	for _, scheme := range []Compression{CompressNone, CompressLZW, CompressGZIP} {
		compressed, err := Compress([]byte{}, scheme)
		require.NoError(t, err)

		decompressed, err := Decompress(compressed, scheme)
		require.NoError(t, err)
		assert.Empty(t, decompressed)
	}
}

func TestCompress_GZIP_SmallerThanOriginal(t *testing.T) {
	data := bytes.Repeat([]byte("AAAA"), 1000)
	compressed, err := Compress(data, CompressGZIP)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))
}

func TestCompress_UnsupportedScheme(t *testing.T) {
	_, err := Compress([]byte("data"), Compression(9))
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
	_, err = Decompress([]byte("data"), Compression(9))
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestUnpackSnapshot_Corrupt(t *testing.T) {
	_, err := unpackSnapshot(nil)
	assert.ErrorIs(t, err, ErrCorruptState)
	_, err = unpackSnapshot([]byte{9, 1, 2})
	assert.ErrorIs(t, err, ErrCorruptState)
	_, err = unpackSnapshot([]byte{byte(CompressGZIP), 1, 2})
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestBoltStore_CompressionSchemes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")

	// Each reopen writes with a different scheme and still reads the
	// previous snapshot.
	var version uint64
	for _, scheme := range []Compression{CompressNone, CompressLZW, CompressGZIP, CompressNone} {
		store, err := OpenBoltStore(path, WithCompression(scheme))
		require.NoError(t, err, scheme.String())

		if version > 0 {
			loaded, err := store.Load()
			require.NoError(t, err, scheme.String())
			assert.Equal(t, version, loaded.Version)
		}

		version++
		s := NewState(makeAddr(0xAA))
		s.Version = version
		s.InsertListing(testListing(ListingStandard, int64(version)))
		require.NoError(t, store.Commit(s, nil))
		require.NoError(t, store.Close())
	}
}

func TestOpenBoltStore_RejectsUnknownCompression(t *testing.T) {
	_, err := OpenBoltStore(filepath.Join(t.TempDir(), "market.db"), WithCompression(Compression(7)))
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}
