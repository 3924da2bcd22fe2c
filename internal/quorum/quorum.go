// Package quorum sends the same request to every peer and reduces the
// answers to one value by vote.
package quorum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/peer"
)

// Quorum errors.
var (
	ErrNoQuorum          = errors.New("no quorum")
	ErrMalformedResponse = errors.New("malformed peer response")
)

// Result describes how a quorum call went.
type Result struct {
	Responded int // peers that returned a well-formed answer
	Agreed    int // responses equal to the chosen answer
	Total     int // peers asked
}

// String formats the result as "agreed/responded/total".
func (r Result) String() string {
	return fmt.Sprintf("%d/%d agreed (%d peers)", r.Agreed, r.Responded, r.Total)
}

// Quorum fans requests out to a fixed peer list.
type Quorum struct {
	peers     []peer.Peer
	transport peer.Transport
	strategy  Strategy
}

// New creates a Quorum over a copy of peers. A nil strategy selects Plurality.
func New(peers []peer.Peer, transport peer.Transport, strategy Strategy) *Quorum {
	if strategy == nil {
		strategy = Plurality{}
	}
	return &Quorum{
		peers:     append([]peer.Peer(nil), peers...),
		transport: transport,
		strategy:  strategy,
	}
}

// Peers returns a copy of the peer list.
func (q *Quorum) Peers() []peer.Peer {
	return append([]peer.Peer(nil), q.peers...)
}

// Get issues GET path to every peer and decodes the consensus answer into out.
func (q *Quorum) Get(ctx context.Context, path string, out any) (Result, error) {
	return q.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues POST path with body to every peer and decodes the consensus
// answer into out.
func (q *Quorum) Post(ctx context.Context, path string, body []byte, out any) (Result, error) {
	return q.do(ctx, http.MethodPost, path, body, out)
}

func (q *Quorum) do(ctx context.Context, method, path string, body []byte, out any) (Result, error) {
	res := Result{Total: len(q.peers)}
	outType := reflect.TypeOf(out)
	if outType == nil || outType.Kind() != reflect.Pointer {
		return res, fmt.Errorf("quorum: out must be a non-nil pointer, got %T", out)
	}
	done := log.Timed(log.Quorum, method+" "+path)
	defer done()

	// One slot per peer, filled by index so the vote never depends on
	// completion order.
	slots := make([]json.RawMessage, len(q.peers))
	var wg sync.WaitGroup
	for i, p := range q.peers {
		wg.Add(1)
		go func(i int, p peer.Peer) {
			defer wg.Done()
			data, err := q.transport.Do(ctx, p, method, path, body)
			if err == nil {
				err = checkShape(data, outType.Elem())
			}
			if err != nil {
				log.Quorum.Warn().Str("peer", p.String()).Str("path", path).Err(err).Msg("excluding peer from vote")
				return
			}
			slots[i] = data
		}(i, p)
	}
	wg.Wait()

	responses := make([]json.RawMessage, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			responses = append(responses, s)
		}
	}
	res.Responded = len(responses)
	if res.Responded == 0 {
		return res, fmt.Errorf("%w: 0 of %d peers answered %s %s", ErrNoQuorum, res.Total, method, path)
	}

	winner, err := q.strategy.Resolve(responses)
	if err != nil {
		return res, err
	}
	res.Agreed = Agreement(responses, winner)

	if err := json.Unmarshal(winner, out); err != nil {
		return res, fmt.Errorf("%w: decode consensus answer: %w", ErrMalformedResponse, err)
	}
	log.Quorum.Debug().Str("path", path).Int("agreed", res.Agreed).Int("responded", res.Responded).
		Int("total", res.Total).Msg("quorum resolved")
	return res, nil
}

// checkShape decodes data into a fresh value of type t, rejecting unknown
// trailing data.
func checkShape(data []byte, t reflect.Type) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	v := reflect.New(t).Interface()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedResponse)
	}
	return nil
}
