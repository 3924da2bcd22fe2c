// Package crypto provides the hashing and signing primitives used by the wallet.
package crypto

import (
	"github.com/Klingon-tech/klingnet-lite/pkg/types"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash computes a single SHA-256 digest of the input data.
func Hash(data []byte) types.Hash {
	return types.Hash(chainhash.HashH(data))
}

// DoubleHash computes SHA-256(SHA-256(data)). It is the canonical digest
// for transaction IDs, block hashes and merkle leaves.
func DoubleHash(data []byte) types.Hash {
	return types.Hash(chainhash.DoubleHashH(data))
}

// DoubleHashConcat returns DoubleHash(a) || DoubleHash(b), the 64-byte node
// fed into the next merkle level.
func DoubleHashConcat(a, b []byte) []byte {
	left := DoubleHash(a)
	right := DoubleHash(b)
	buf := make([]byte, 0, 2*types.HashSize)
	buf = append(buf, left[:]...)
	return append(buf, right[:]...)
}
