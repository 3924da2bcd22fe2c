package peer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/storage"
)

const (
	cacheKeyPrefix = "peer/"
	// MaxCachedPeers bounds the number of stored peers.
	MaxCachedPeers = 500
)

// Record is a cached peer entry.
type Record struct {
	Peer
	LastSeen int64  `json:"last_seen"` // unix timestamp
	Source   string `json:"source"`    // "seed", "static"
}

// Cache persists the last known peer list in a storage.DB under "peer/".
// The list order is preserved.
type Cache struct {
	db storage.DB
}

// NewCache creates a cache backed by db.
func NewCache(db storage.DB) *Cache {
	return &Cache{db: db}
}

func cacheKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%06d", cacheKeyPrefix, i))
}

// Save replaces the cached list with peers. Peers past MaxCachedPeers are dropped.
func (c *Cache) Save(peers []Peer, source string) error {
	if len(peers) > MaxCachedPeers {
		peers = peers[:MaxCachedPeers]
	}

	var stale [][]byte
	err := c.db.ForEach([]byte(cacheKeyPrefix), func(key, _ []byte) error {
		stale = append(stale, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterate peer records: %w", err)
	}

	now := time.Now().Unix()
	records := make([][]byte, len(peers))
	for i, p := range peers {
		data, err := json.Marshal(Record{Peer: p, LastSeen: now, Source: source})
		if err != nil {
			return fmt.Errorf("marshal peer record: %w", err)
		}
		records[i] = data
	}

	if batcher, ok := c.db.(storage.Batcher); ok {
		b := batcher.NewBatch()
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		for i, data := range records {
			if err := b.Put(cacheKey(i), data); err != nil {
				return err
			}
		}
		if err := b.Commit(); err != nil {
			return fmt.Errorf("save peers: %w", err)
		}
	} else {
		for _, k := range stale {
			if err := c.db.Delete(k); err != nil {
				return fmt.Errorf("delete peer record: %w", err)
			}
		}
		for i, data := range records {
			if err := c.db.Put(cacheKey(i), data); err != nil {
				return fmt.Errorf("put peer record: %w", err)
			}
		}
	}
	log.Peer.Debug().Int("count", len(peers)).Str("source", source).Msg("cached peers")
	return nil
}

// LoadAll returns the cached records in saved order.
func (c *Cache) LoadAll() ([]Record, error) {
	var records []Record
	err := c.db.ForEach([]byte(cacheKeyPrefix), func(_, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // Skip corrupt records.
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate peer records: %w", err)
	}
	return records, nil
}

// Load returns the cached peers, skipping records older than maxAge.
// A zero maxAge disables the age check.
func (c *Cache) Load(maxAge time.Duration) ([]Peer, error) {
	records, err := c.LoadAll()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge).Unix()
	peers := make([]Peer, 0, len(records))
	for _, rec := range records {
		if maxAge > 0 && rec.LastSeen < cutoff {
			continue
		}
		peers = append(peers, rec.Peer)
	}
	return peers, nil
}

// Count returns the number of cached peers.
func (c *Cache) Count() (int, error) {
	count := 0
	err := c.db.ForEach([]byte(cacheKeyPrefix), func(_, _ []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count peers: %w", err)
	}
	return count, nil
}
