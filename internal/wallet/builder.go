package wallet

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// Payment parameter errors.
var (
	ErrZeroAmount      = errors.New("amount must be positive")
	ErrNoDestination   = errors.New("destination address is required")
	ErrNoChangeAddress = errors.New("change address is required")
	ErrAmountOverflow  = fmt.Errorf("amount + fee: %w", tx.ErrValueOverflow)
	ErrNoSigner        = errors.New("no signing key")
)

// Payment describes a transfer to build.
type Payment struct {
	To            string
	Amount        uint64
	Fee           uint64
	ChangeAddress string
}

func (p Payment) validate() (uint64, error) {
	if p.Amount == 0 {
		return 0, ErrZeroAmount
	}
	if p.To == "" {
		return 0, ErrNoDestination
	}
	if p.ChangeAddress == "" {
		return 0, ErrNoChangeAddress
	}
	if p.Amount > math.MaxUint64-p.Fee {
		return 0, ErrAmountOverflow
	}
	return p.Amount + p.Fee, nil
}

// Plan selects inputs for p and returns the unsigned transaction. Outputs are
// the payment followed by change back to p.ChangeAddress when any is left.
func Plan(p Payment, confirmed, pending []tx.UTXO) (*tx.Unsigned, error) {
	target, err := p.validate()
	if err != nil {
		return nil, err
	}
	sel, err := SelectInputs(confirmed, pending, target)
	if err != nil {
		return nil, err
	}

	b := tx.NewBuilder().AddInputs(sel.Inputs).AddOutput(p.Amount, p.To)
	if sel.Change > 0 {
		b.AddOutput(sel.Change, p.ChangeAddress)
	}
	unsigned, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build tx: %w", err)
	}
	log.Wallet.Debug().
		Int("inputs", len(sel.Inputs)).
		Uint64("total", sel.Total).
		Uint64("change", sel.Change).
		Uint64("fee", unsigned.Fee()).
		Msg("inputs selected")
	return unsigned, nil
}

// BuildAndSign plans p, signs it with signer and computes its txid.
// Nothing is signed unless the plan is valid.
func BuildAndSign(signer crypto.Signer, p Payment, confirmed, pending []tx.UTXO) (*tx.Identified, error) {
	if signer == nil {
		return nil, fmt.Errorf("sign tx: %w", ErrNoSigner)
	}
	unsigned, err := Plan(p, confirmed, pending)
	if err != nil {
		return nil, err
	}
	return signAndIdentify(unsigned, signer)
}

// BuildAndSignHex is BuildAndSign with a hex private key. The key is only
// parsed once inputs have been selected, and is zeroed before returning.
func BuildAndSignHex(privHex string, p Payment, confirmed, pending []tx.UTXO) (*tx.Identified, error) {
	unsigned, err := Plan(p, confirmed, pending)
	if err != nil {
		return nil, err
	}
	key, err := crypto.PrivateKeyFromHex(privHex)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return signAndIdentify(unsigned, key)
}

func signAndIdentify(unsigned *tx.Unsigned, signer crypto.Signer) (*tx.Identified, error) {
	signed, err := unsigned.Sign(signer)
	if err != nil {
		return nil, err
	}
	identified, err := signed.Identify()
	if err != nil {
		return nil, fmt.Errorf("identify tx: %w", err)
	}
	log.Wallet.Info().Str("txid", identified.TxID().String()).Msg("transaction signed")
	return identified, nil
}
