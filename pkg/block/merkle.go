package block

import (
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/types"
)

// MerkleRoot aggregates an ordered list of leaves into a single digest.
//
// Algorithm:
//   - 0 leaves: returns the zero hash
//   - 1 leaf: returns DoubleHash(leaf)
//   - Otherwise: pair items left to right, duplicating the last one if the
//     count is odd; each pair becomes DoubleHash(left) || DoubleHash(right).
//     Repeat on the resulting level until one item remains; the root is
//     DoubleHash of that item.
//
// The caller's slice is never modified.
func MerkleRoot(leaves [][]byte) types.Hash {
	switch len(leaves) {
	case 0:
		return types.ZeroHash
	case 1:
		return crypto.DoubleHash(leaves[0])
	}

	level := make([][]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([][]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.DoubleHashConcat(level[i], level[i+1])
		}
		level = next
	}

	return crypto.DoubleHash(level[0])
}
