package storage

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// SelectorSize is the length of a function selector in bytes.
const SelectorSize = 4

// Selector is the first four bytes of the Keccak-256 hash of a function signature.
type Selector [SelectorSize]byte

// SelectorOf derives the selector of a canonical function signature,
// e.g. "facets()".
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], Keccak256([]byte(signature)))
	return s
}

// ParseSelector parses a 0x-prefixed or bare 8-digit hex selector.
func ParseSelector(str string) (Selector, error) {
	var s Selector
	raw, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}
	if len(raw) != SelectorSize {
		return s, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSelector, SelectorSize, len(raw))
	}
	copy(s[:], raw)
	return s, nil
}

// String returns the 0x-prefixed hex form of the selector.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Keccak256 returns the legacy Keccak-256 digest used by the EVM.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 returned as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}
