package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/quorum"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// ErrNoSource is returned by Send when no source address is given.
var ErrNoSource = errors.New("source address is required")

// Balance sums the UTXOs of an address.
type Balance struct {
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed uint64 `json:"unconfirmed"`
}

// Option configures a Client.
type Option func(*Client)

// WithStrategy replaces the default plurality vote.
func WithStrategy(s quorum.Strategy) Option {
	return func(c *Client) { c.strategy = s }
}

// WithHistory records every broadcast in h.
func WithHistory(h *History) Option {
	return func(c *Client) { c.history = h }
}

// Client talks to a fixed set of peers through a quorum.
type Client struct {
	quorum   *quorum.Quorum
	strategy quorum.Strategy
	history  *History
}

// NewClient creates a client over a copy of peers.
func NewClient(peers []peer.Peer, transport peer.Transport, opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	c.quorum = quorum.New(peers, transport, c.strategy)
	return c
}

// Peers returns the peers the client votes over.
func (c *Client) Peers() []peer.Peer {
	return c.quorum.Peers()
}

// FetchUTXOs returns the consensus confirmed and pending UTXOs of addr.
func (c *Client) FetchUTXOs(ctx context.Context, addr string) (confirmed, pending []tx.UTXO, err error) {
	confirmed, res, err := c.quorum.ConfirmedUTXOs(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch confirmed utxos: %w", err)
	}
	log.Wallet.Debug().Str("address", addr).Int("count", len(confirmed)).Str("votes", res.String()).Msg("confirmed utxos")

	pending, res, err = c.quorum.PendingUTXOs(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pending utxos: %w", err)
	}
	log.Wallet.Debug().Str("address", addr).Int("count", len(pending)).Str("votes", res.String()).Msg("pending utxos")
	return confirmed, pending, nil
}

// Balance returns the confirmed and pending totals of addr.
func (c *Client) Balance(ctx context.Context, addr string) (Balance, error) {
	confirmed, pending, err := c.FetchUTXOs(ctx, addr)
	if err != nil {
		return Balance{}, err
	}
	var bal Balance
	if bal.Confirmed, err = sumUTXOs(confirmed); err != nil {
		return Balance{}, fmt.Errorf("confirmed balance: %w", err)
	}
	if bal.Unconfirmed, err = sumUTXOs(pending); err != nil {
		return Balance{}, fmt.Errorf("unconfirmed balance: %w", err)
	}
	return bal, nil
}

// SendRequest is a payment from From signed by Key.
type SendRequest struct {
	Key           crypto.Signer
	From          string
	To            string
	Amount        uint64
	Fee           uint64
	ChangeAddress string
}

// SendResult reports a broadcast payment.
type SendResult struct {
	Accepted bool
	Tx       *tx.Identified
	Votes    quorum.Result
}

// Send fetches the UTXOs of req.From, builds and signs the payment, then
// broadcasts it. A rejected transaction is not an error: check Accepted.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.Key == nil {
		return nil, fmt.Errorf("send: %w", ErrNoSigner)
	}
	if req.From == "" {
		return nil, fmt.Errorf("send: %w", ErrNoSource)
	}
	confirmed, pending, err := c.FetchUTXOs(ctx, req.From)
	if err != nil {
		return nil, err
	}

	p := Payment{To: req.To, Amount: req.Amount, Fee: req.Fee, ChangeAddress: req.ChangeAddress}
	identified, err := BuildAndSign(req.Key, p, confirmed, pending)
	if err != nil {
		return nil, err
	}

	accepted, res, err := c.Broadcast(ctx, identified.Transaction())
	if err != nil {
		return nil, err
	}
	return &SendResult{Accepted: accepted, Tx: identified, Votes: res}, nil
}

// Broadcast submits t for validation by the quorum and records the outcome
// when a history is configured.
func (c *Client) Broadcast(ctx context.Context, t *tx.Transaction) (bool, quorum.Result, error) {
	accepted, res, err := c.quorum.BroadcastTransaction(ctx, t)
	if err != nil {
		return false, res, fmt.Errorf("broadcast: %w", err)
	}

	txid := ""
	if t.TxID != nil {
		txid = *t.TxID
	}
	log.Wallet.Info().Str("txid", txid).Bool("accepted", accepted).Str("votes", res.String()).Msg("broadcast")

	if c.history != nil && txid != "" {
		err := c.history.Record(Entry{
			TxID:      txid,
			Tx:        t,
			Accepted:  accepted,
			Agreed:    res.Agreed,
			Responded: res.Responded,
			Peers:     res.Total,
		})
		if err != nil {
			// The broadcast already happened; losing the record is not fatal.
			log.Wallet.Warn().Err(err).Str("txid", txid).Msg("failed to record history")
		}
	}
	return accepted, res, nil
}

// IsNoQuorum reports whether err means no peer gave a usable answer.
func IsNoQuorum(err error) bool {
	return errors.Is(err, quorum.ErrNoQuorum)
}
