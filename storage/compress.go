package storage

import (
	"bytes"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
)

// Compression selects how BoltStore encodes state snapshots on disk.
type Compression uint8

// Supported snapshot compression schemes. The scheme is written as the first
// byte of every snapshot, so a store can read snapshots written with any of
// them.
const (
	CompressNone Compression = iota
	CompressLZW
	CompressGZIP
)

func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressLZW:
		return "lzw"
	case CompressGZIP:
		return "gzip"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Compress compresses data using the specified scheme.
func Compress(data []byte, scheme Compression) ([]byte, error) {
	switch scheme {
	case CompressNone:
		return data, nil
	case CompressLZW:
		return compressLZW(data)
	case CompressGZIP:
		return compressGZIP(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, scheme)
	}
}

// Decompress decompresses data using the specified scheme.
func Decompress(data []byte, scheme Compression) ([]byte, error) {
	switch scheme {
	case CompressNone:
		return data, nil
	case CompressLZW:
		return decompressLZW(data)
	case CompressGZIP:
		return decompressGZIP(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, scheme)
	}
}

// packSnapshot prefixes the compressed snapshot with its scheme.
func packSnapshot(data []byte, scheme Compression) ([]byte, error) {
	body, err := Compress(data, scheme)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(scheme)}, body...), nil
}

// unpackSnapshot reverses packSnapshot.
func unpackSnapshot(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrCorruptState)
	}
	data, err := Decompress(raw[1:], Compression(raw[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return data, nil
}

func compressLZW(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, 8)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZW(data []byte) ([]byte, error) {
	r := lzw.NewReader(bytes.NewReader(data), lzw.LSB, 8)
	defer r.Close()
	return io.ReadAll(r)
}

func compressGZIP(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGZIP(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
