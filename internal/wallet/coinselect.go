package wallet

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = fmt.Errorf("%w: no UTXOs available", ErrInsufficientFunds)
	ErrZeroTarget        = errors.New("target must be positive")
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []tx.UTXO // Selected UTXOs, in spend order.
	Total  uint64    // Sum of selected input amounts.
	Change uint64    // Total - target.
}

// SelectInputs picks UTXOs covering target. Confirmed UTXOs are considered
// before pending ones; within each pool the peer-reported order is kept and
// the first UTXOs that reach the target win. Zero-amount UTXOs are skipped.
//
// Spending pending UTXOs can race with their parent transaction; callers
// that cannot accept that should pass a nil pending pool.
func SelectInputs(confirmed, pending []tx.UTXO, target uint64) (*CoinSelection, error) {
	if target == 0 {
		return nil, ErrZeroTarget
	}
	if len(confirmed) == 0 && len(pending) == 0 {
		return nil, ErrNoUTXOs
	}

	candidates := make([]tx.UTXO, 0, len(confirmed)+len(pending))
	candidates = append(candidates, confirmed...)
	candidates = append(candidates, pending...)

	sel := &CoinSelection{}
	for _, u := range candidates {
		if u.Amount == 0 {
			continue
		}
		if sel.Total > math.MaxUint64-u.Amount {
			return nil, fmt.Errorf("select inputs: %w", tx.ErrValueOverflow)
		}
		sel.Inputs = append(sel.Inputs, u)
		sel.Total += u.Amount
		if sel.Total >= target {
			sel.Change = sel.Total - target
			return sel, nil
		}
	}
	return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, sel.Total, target)
}

// sumUTXOs adds the amounts of utxos.
func sumUTXOs(utxos []tx.UTXO) (uint64, error) {
	var total uint64
	for _, u := range utxos {
		if total > math.MaxUint64-u.Amount {
			return 0, tx.ErrValueOverflow
		}
		total += u.Amount
	}
	return total, nil
}
