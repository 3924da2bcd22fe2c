// Package types defines the primitive values shared by the wallet client.
package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a SHA-256d digest in bytes.
const HashSize = 32

// Hash is a SHA-256d digest: a txid, a merkle root or a block hash. It is
// written as 64 lowercase hex characters in natural byte order, unlike
// bitcoin's reversed display order.
type Hash [HashSize]byte

// ZeroHash is the merkle root of an empty leaf set.
var ZeroHash Hash

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool { return h == ZeroHash }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// MarshalText encodes h as hex, which also gives it a JSON string form.
func (h Hash) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(HashSize))
	hex.Encode(out, h[:])
	return out, nil
}

// UnmarshalText decodes 64 hex characters. Empty text yields the zero hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = ZeroHash
		return nil
	}
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses a hex txid or digest.
func HexToHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, fmt.Errorf("hash must be %d hex characters, got %d", hex.EncodedLen(HashSize), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return ZeroHash, fmt.Errorf("invalid hex: %w", err)
	}
	return h, nil
}
