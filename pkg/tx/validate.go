package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrZeroOutput         = errors.New("output amount is zero")
	ErrEmptyAddress       = errors.New("output address is empty")
	ErrValueOverflow      = errors.New("value overflows uint64")
	ErrInsufficientInputs = errors.New("inputs do not cover outputs")
	ErrUnsupportedVersion = errors.New("unsupported transaction version")
	ErrMissingSig         = errors.New("transaction missing signature")
	ErrMissingPubKey      = errors.New("transaction missing public key")
	ErrMissingTxID        = errors.New("transaction missing txid")
	ErrInvalidSig         = errors.New("invalid signature")
	ErrTxIDMismatch       = errors.New("txid does not match transaction")
)

// Validate checks the transaction body. It does not look at the signature.
func (t *Transaction) Validate() error {
	if t.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, t.Version)
	}
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Outputs) == 0 {
		return ErrNoOutputs
	}
	for i, out := range t.Outputs {
		if out.Amount == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if out.Address == "" {
			return fmt.Errorf("output %d: %w", i, ErrEmptyAddress)
		}
	}
	_, err := t.Fee()
	return err
}

// Verify checks the signature against the unsigned bytes and the txid
// against the signed bytes.
func (t *Transaction) Verify(verifier crypto.Verifier) error {
	switch {
	case t.Signature == nil || *t.Signature == "":
		return ErrMissingSig
	case t.PublicKey == nil || *t.PublicKey == "":
		return ErrMissingPubKey
	case t.TxID == nil || *t.TxID == "":
		return ErrMissingTxID
	}

	msg, err := t.SigningBytes()
	if err != nil {
		return err
	}
	if !verifier.Verify(*t.PublicKey, msg, *t.Signature) {
		return ErrInvalidSig
	}

	id, err := t.ComputeTxID()
	if err != nil {
		return err
	}
	if id.String() != *t.TxID {
		return fmt.Errorf("%w: got %s, want %s", ErrTxIDMismatch, *t.TxID, id)
	}
	return nil
}
