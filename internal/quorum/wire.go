package quorum

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// Peer wire protocol paths.
const (
	PathUTXOs      = "/utxos/address/"
	PathMempool    = "/utxos_mempool/address/"
	PathValidateTx = "/validate/tx"
)

// ConfirmedUTXOs returns the consensus confirmed UTXO set of addr.
func (q *Quorum) ConfirmedUTXOs(ctx context.Context, addr string) ([]tx.UTXO, Result, error) {
	var utxos []tx.UTXO
	res, err := q.Get(ctx, PathUTXOs+url.PathEscape(addr), &utxos)
	return utxos, res, err
}

// PendingUTXOs returns the consensus mempool UTXO set of addr.
func (q *Quorum) PendingUTXOs(ctx context.Context, addr string) ([]tx.UTXO, Result, error) {
	var utxos []tx.UTXO
	res, err := q.Get(ctx, PathMempool+url.PathEscape(addr), &utxos)
	return utxos, res, err
}

// BroadcastTransaction submits t to every peer for validation. The verdict
// is the winning response's "valid" field, false when it is absent or not
// a boolean.
func (q *Quorum) BroadcastTransaction(ctx context.Context, t *tx.Transaction) (bool, Result, error) {
	body, err := t.CanonicalBytes()
	if err != nil {
		return false, Result{Total: len(q.peers)}, err
	}

	var verdict map[string]json.RawMessage
	res, err := q.Post(ctx, PathValidateTx, body, &verdict)
	if err != nil {
		return false, res, err
	}

	var valid bool
	if raw, ok := verdict["valid"]; ok {
		if err := json.Unmarshal(raw, &valid); err != nil {
			valid = false
		}
	}
	log.Quorum.Info().Bool("valid", valid).Str("votes", res.String()).Msg("broadcast resolved")
	return valid, res, nil
}
