// Package tx defines the transaction wire format and its signing lifecycle.
package tx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/types"
)

// Version is the only transaction version produced by this client.
const Version uint32 = 1

// UTXO is a spendable output owned by an address, as reported by a peer.
type UTXO struct {
	Amount  uint64          `json:"amount"`
	Address string          `json:"address"`
	Origin  *types.Outpoint `json:"origin,omitempty"`
}

// Output assigns an amount to an address.
type Output struct {
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

// Transaction is the wire form exchanged with peers.
//
// Field order is part of the protocol: the canonical bytes that get signed
// and hashed are the JSON encoding of this struct in declared order, with
// absent optional fields encoded as null.
type Transaction struct {
	Version   uint32   `json:"version"`
	Inputs    []UTXO   `json:"inputs"`
	Outputs   []Output `json:"outputs"`
	Signature *string  `json:"signature"`
	TxID      *string  `json:"txid"`
	PublicKey *string  `json:"public_key"`
}

// CanonicalBytes returns the canonical serialization of the transaction.
func (t *Transaction) CanonicalBytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SigningBytes returns the canonical bytes of the transaction with
// signature, txid and public key all absent.
func (t *Transaction) SigningBytes() ([]byte, error) {
	unsigned := Transaction{Version: t.Version, Inputs: t.Inputs, Outputs: t.Outputs}
	return unsigned.CanonicalBytes()
}

// ComputeTxID returns the double hash of the canonical signed form
// (signature and public key set, txid absent).
func (t *Transaction) ComputeTxID() (types.Hash, error) {
	signed := Transaction{
		Version:   t.Version,
		Inputs:    t.Inputs,
		Outputs:   t.Outputs,
		Signature: t.Signature,
		PublicKey: t.PublicKey,
	}
	b, err := signed.CanonicalBytes()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.DoubleHash(b), nil
}

// TotalInputValue returns the sum of all input amounts.
func (t *Transaction) TotalInputValue() (uint64, error) {
	var total uint64
	for i, in := range t.Inputs {
		if total > math.MaxUint64-in.Amount {
			return 0, fmt.Errorf("input %d: %w", i, ErrValueOverflow)
		}
		total += in.Amount
	}
	return total, nil
}

// TotalOutputValue returns the sum of all output amounts.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for i, out := range t.Outputs {
		if total > math.MaxUint64-out.Amount {
			return 0, fmt.Errorf("output %d: %w", i, ErrValueOverflow)
		}
		total += out.Amount
	}
	return total, nil
}

// Fee returns total inputs minus total outputs.
func (t *Transaction) Fee() (uint64, error) {
	in, err := t.TotalInputValue()
	if err != nil {
		return 0, err
	}
	out, err := t.TotalOutputValue()
	if err != nil {
		return 0, err
	}
	if in < out {
		return 0, fmt.Errorf("%w: inputs %d, outputs %d", ErrInsufficientInputs, in, out)
	}
	return in - out, nil
}

// Unsigned is a validated transaction body that has not been signed yet.
type Unsigned struct {
	version uint32
	inputs  []UTXO
	outputs []Output
}

// NewUnsigned validates inputs and outputs and returns an unsigned
// transaction. The slices are copied.
func NewUnsigned(inputs []UTXO, outputs []Output) (*Unsigned, error) {
	u := &Unsigned{
		version: Version,
		inputs:  append([]UTXO(nil), inputs...),
		outputs: append([]Output(nil), outputs...),
	}
	if err := u.Transaction().Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Inputs returns a copy of the inputs.
func (u *Unsigned) Inputs() []UTXO { return append([]UTXO(nil), u.inputs...) }

// Outputs returns a copy of the outputs.
func (u *Unsigned) Outputs() []Output { return append([]Output(nil), u.outputs...) }

// Fee returns the implicit fee (inputs minus outputs).
func (u *Unsigned) Fee() uint64 {
	fee, _ := u.Transaction().Fee() // validated at construction
	return fee
}

// Transaction returns the wire form.
func (u *Unsigned) Transaction() *Transaction {
	return &Transaction{
		Version: u.version,
		Inputs:  u.Inputs(),
		Outputs: u.Outputs(),
	}
}

// SigningBytes returns the bytes the signer commits to.
func (u *Unsigned) SigningBytes() ([]byte, error) {
	return u.Transaction().CanonicalBytes()
}

// Sign signs the canonical unsigned bytes.
func (u *Unsigned) Sign(signer crypto.Signer) (*Signed, error) {
	msg, err := u.SigningBytes()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return &Signed{body: u, signature: sig, publicKey: signer.PublicKeyHex()}, nil
}

// Signed is a transaction carrying a signature and public key but no txid.
type Signed struct {
	body      *Unsigned
	signature string
	publicKey string
}

// Signature returns the hex DER signature.
func (s *Signed) Signature() string { return s.signature }

// PublicKey returns the hex compressed public key of the signer.
func (s *Signed) PublicKey() string { return s.publicKey }

// Unsigned returns the signed body.
func (s *Signed) Unsigned() *Unsigned { return s.body }

// Transaction returns the wire form.
func (s *Signed) Transaction() *Transaction {
	t := s.body.Transaction()
	sig, pub := s.signature, s.publicKey
	t.Signature = &sig
	t.PublicKey = &pub
	return t
}

// Identify computes the txid over the canonical signed bytes.
func (s *Signed) Identify() (*Identified, error) {
	id, err := s.Transaction().ComputeTxID()
	if err != nil {
		return nil, err
	}
	return &Identified{signed: s, txid: id}, nil
}

// Identified is a signed transaction with its txid. It is ready for broadcast.
type Identified struct {
	signed *Signed
	txid   types.Hash
}

// TxID returns the transaction id.
func (i *Identified) TxID() types.Hash { return i.txid }

// Signed returns the signed transaction.
func (i *Identified) Signed() *Signed { return i.signed }

// Transaction returns the complete wire form.
func (i *Identified) Transaction() *Transaction {
	t := i.signed.Transaction()
	id := i.txid.String()
	t.TxID = &id
	return t
}

// MarshalJSON encodes the wire form.
func (i *Identified) MarshalJSON() ([]byte, error) {
	return i.Transaction().CanonicalBytes()
}

// FromTransaction checks a complete wire transaction (body, signature and
// txid) and returns it as an Identified transaction.
func FromTransaction(t *Transaction, verifier crypto.Verifier) (*Identified, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := t.Verify(verifier); err != nil {
		return nil, err
	}
	id, err := types.HexToHash(*t.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTxIDMismatch, err)
	}
	body := &Unsigned{
		version: t.Version,
		inputs:  append([]UTXO(nil), t.Inputs...),
		outputs: append([]Output(nil), t.Outputs...),
	}
	signed := &Signed{body: body, signature: *t.Signature, publicKey: *t.PublicKey}
	return &Identified{signed: signed, txid: id}, nil
}
