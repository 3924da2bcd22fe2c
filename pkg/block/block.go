// Package block defines block headers and the merkle aggregation used to
// commit a header to its transactions.
package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// ErrMerkleMismatch is returned when a header's merkle root does not match its transactions.
var ErrMerkleMismatch = errors.New("merkle root mismatch")

// Block pairs a header with its transactions.
type Block struct {
	Header *Header           `json:"header"`
	Txs    []*tx.Transaction `json:"txs"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	return &Block{
		Header: header,
		Txs:    txs,
	}
}

// CheckMerkleRoot recomputes the merkle root from Txs and compares it to the header.
func (b *Block) CheckMerkleRoot() error {
	root, err := TxMerkleRoot(b.Txs)
	if err != nil {
		return err
	}
	if root != b.Header.MerkleRoot {
		return fmt.Errorf("%w: header %s, computed %s", ErrMerkleMismatch, b.Header.MerkleRoot, root)
	}
	return nil
}
