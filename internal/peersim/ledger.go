// Package peersim is a development peer that speaks the wallet wire
// protocol over an in-memory UTXO ledger.
package peersim

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
	"github.com/Klingon-tech/klingnet-lite/pkg/types"
)

// ErrUnknownInput is returned when a transaction spends a UTXO the ledger
// does not hold.
var ErrUnknownInput = errors.New("input not in ledger")

// Fixture is the YAML seed of a ledger.
//
//	peers:
//	  - address: 127.0.0.1
//	    port: 8001
//	confirmed:
//	  <address>: [100, 250]
//	pending:
//	  <address>: [5]
type Fixture struct {
	Peers     []FixturePeer       `yaml:"peers"`
	Confirmed map[string][]uint64 `yaml:"confirmed"`
	Pending   map[string][]uint64 `yaml:"pending"`
}

// FixturePeer is a peer advertised by /discover/nodes.
type FixturePeer struct {
	Address string `yaml:"address"`
	Port    uint16 `yaml:"port"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// PeerList returns the fixture peers.
func (f *Fixture) PeerList() []peer.Peer {
	out := make([]peer.Peer, len(f.Peers))
	for i, p := range f.Peers {
		out[i] = peer.Peer{Address: p.Address, Port: p.Port}
	}
	return out
}

// Ledger holds confirmed and pending UTXOs per address.
type Ledger struct {
	mu        sync.RWMutex
	confirmed map[string][]tx.UTXO
	pending   map[string][]tx.UTXO
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		confirmed: make(map[string][]tx.UTXO),
		pending:   make(map[string][]tx.UTXO),
	}
}

// NewLedgerFromFixture creates a ledger seeded with f's balances.
func NewLedgerFromFixture(f *Fixture) *Ledger {
	l := NewLedger()
	for addr, amounts := range f.Confirmed {
		for _, a := range amounts {
			l.Credit(addr, a, true)
		}
	}
	for addr, amounts := range f.Pending {
		for _, a := range amounts {
			l.Credit(addr, a, false)
		}
	}
	return l
}

// Credit adds a UTXO of amount to addr.
func (l *Ledger) Credit(addr string, amount uint64, confirmed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := tx.UTXO{Amount: amount, Address: addr}
	if confirmed {
		l.confirmed[addr] = append(l.confirmed[addr], u)
	} else {
		l.pending[addr] = append(l.pending[addr], u)
	}
}

// Confirmed returns a copy of the confirmed UTXOs of addr. Never nil.
func (l *Ledger) Confirmed(addr string) []tx.UTXO {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]tx.UTXO{}, l.confirmed[addr]...)
}

// Pending returns a copy of the pending UTXOs of addr. Never nil.
func (l *Ledger) Pending(addr string) []tx.UTXO {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]tx.UTXO{}, l.pending[addr]...)
}

// Apply spends the inputs of id and credits its outputs as pending, each
// tagged with its outpoint. It is all or nothing: when any input is missing
// the ledger is unchanged.
func (l *Ledger) Apply(id *tx.Identified) error {
	t := id.Transaction()
	l.mu.Lock()
	defer l.mu.Unlock()

	confirmed := cloneBook(l.confirmed)
	pending := cloneBook(l.pending)
	for i, in := range t.Inputs {
		if !take(confirmed, in) && !take(pending, in) {
			return fmt.Errorf("input %d (%d to %s): %w", i, in.Amount, in.Address, ErrUnknownInput)
		}
	}
	for i, out := range t.Outputs {
		origin := &types.Outpoint{TxID: id.TxID(), Index: uint32(i)}
		pending[out.Address] = append(pending[out.Address], tx.UTXO{Amount: out.Amount, Address: out.Address, Origin: origin})
	}
	l.confirmed, l.pending = confirmed, pending
	return nil
}

// take removes the first UTXO in book equal to u.
func take(book map[string][]tx.UTXO, u tx.UTXO) bool {
	list := book[u.Address]
	for i, have := range list {
		if have.Amount != u.Amount {
			continue
		}
		if (have.Origin == nil) != (u.Origin == nil) || (have.Origin != nil && *have.Origin != *u.Origin) {
			continue
		}
		book[u.Address] = append(list[:i:i], list[i+1:]...)
		return true
	}
	return false
}

func cloneBook(book map[string][]tx.UTXO) map[string][]tx.UTXO {
	out := make(map[string][]tx.UTXO, len(book))
	for addr, list := range book {
		out[addr] = append([]tx.UTXO(nil), list...)
	}
	return out
}
