package block

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
	"github.com/Klingon-tech/klingnet-lite/pkg/types"
)

// Header contains block metadata.
type Header struct {
	Version    uint32      `json:"version"`
	PrevHash   types.Hash  `json:"prev_hash"`
	MerkleRoot types.Hash  `json:"merkle_root"`
	Timestamp  uint64      `json:"timestamp"`
	NBits      uint32      `json:"nbits"`
	Nonce      uint64      `json:"nonce"`
	Hash       *types.Hash `json:"hash"`
}

// NewHeader builds an unsealed header whose merkle root commits to the
// canonical bytes of txs in order.
func NewHeader(version uint32, prevHash types.Hash, timestamp uint64, nbits uint32, nonce uint64, txs []*tx.Transaction) (*Header, error) {
	root, err := TxMerkleRoot(txs)
	if err != nil {
		return nil, err
	}
	return &Header{
		Version:    version,
		PrevHash:   prevHash,
		MerkleRoot: root,
		Timestamp:  timestamp,
		NBits:      nbits,
		Nonce:      nonce,
	}, nil
}

// TxMerkleRoot computes the merkle root over the canonical transaction bytes.
func TxMerkleRoot(txs []*tx.Transaction) (types.Hash, error) {
	leaves := make([][]byte, len(txs))
	for i, t := range txs {
		b, err := t.CanonicalBytes()
		if err != nil {
			return types.Hash{}, fmt.Errorf("tx %d: %w", i, err)
		}
		leaves[i] = b
	}
	return MerkleRoot(leaves), nil
}

// SigningBytes returns the canonical JSON of the header with hash null.
func (h *Header) SigningBytes() ([]byte, error) {
	unsealed := *h
	unsealed.Hash = nil

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&unsealed); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ComputeHash returns the double hash of the header's signing bytes.
func (h *Header) ComputeHash() (types.Hash, error) {
	b, err := h.SigningBytes()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.DoubleHash(b), nil
}

// Seal computes the header hash and stores it in Hash.
func (h *Header) Seal() error {
	hash, err := h.ComputeHash()
	if err != nil {
		return err
	}
	h.Hash = &hash
	return nil
}
