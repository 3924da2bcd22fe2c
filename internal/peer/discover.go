package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
)

// DiscoverPath is the seed endpoint that lists known nodes.
const DiscoverPath = "/discover/nodes"

// Discover asks one seed peer for its node list. Entries with an empty host
// or zero port are dropped. Order is preserved and duplicates are kept.
func Discover(ctx context.Context, t Transport, seed Peer) ([]Peer, error) {
	data, err := t.Do(ctx, seed, http.MethodGet, DiscoverPath, nil)
	if err != nil {
		return nil, err
	}

	var listed []Peer
	if err := json.Unmarshal(data, &listed); err != nil {
		return nil, fmt.Errorf("%w: decode node list from %s: %w", ErrTransport, seed, err)
	}

	peers := make([]Peer, 0, len(listed))
	for _, p := range listed {
		if err := p.Validate(); err != nil {
			log.Peer.Warn().Str("seed", seed.String()).Err(err).Msg("dropping invalid discovered peer")
			continue
		}
		peers = append(peers, p)
	}
	log.Peer.Debug().Str("seed", seed.String()).Int("count", len(peers)).Msg("discovered peers")
	return peers, nil
}
