package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/storage"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// HistoryPrefix is the namespace of send history in the wallet database.
const HistoryPrefix = "history/"

var (
	entryPrefix = []byte("e/") // e/<unix nanos>/<txid> -> Entry
	indexPrefix = []byte("i/") // i/<txid> -> entry key
)

// ErrUnknownTx is returned when a txid is not in the history.
var ErrUnknownTx = errors.New("transaction not in history")

// Entry is one broadcast attempt.
type Entry struct {
	TxID      string          `json:"txid"`
	Tx        *tx.Transaction `json:"tx"`
	Accepted  bool            `json:"accepted"`
	Agreed    int             `json:"agreed"`
	Responded int             `json:"responded"`
	Peers     int             `json:"peers"`
	Time      time.Time       `json:"time"`
}

// History records broadcast transactions in a storage.DB.
type History struct {
	db  *storage.PrefixDB
	now func() time.Time
}

// NewHistory stores entries in db under HistoryPrefix.
func NewHistory(db storage.DB) *History {
	return &History{
		db:  storage.NewPrefixDB(db, []byte(HistoryPrefix)),
		now: time.Now,
	}
}

// Record appends e. A zero Time is set to now. Recording the same txid again
// replaces the earlier entry.
func (h *History) Record(e Entry) error {
	if e.TxID == "" {
		return fmt.Errorf("record history: empty txid")
	}
	if e.Time.IsZero() {
		e.Time = h.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	key := append(append([]byte{}, entryPrefix...), fmt.Sprintf("%020d/%s", e.Time.UnixNano(), e.TxID)...)
	idx := append(append([]byte{}, indexPrefix...), e.TxID...)

	b := h.db.NewBatch()
	if old, err := h.db.Get(idx); err == nil {
		if err := b.Delete(old); err != nil {
			return err
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read history index: %w", err)
	}
	if err := b.Put(key, data); err != nil {
		return err
	}
	if err := b.Put(idx, key); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	log.Wallet.Debug().Str("txid", e.TxID).Bool("accepted", e.Accepted).Msg("history recorded")
	return nil
}

// List returns all entries, oldest first.
func (h *History) List() ([]Entry, error) {
	var entries []Entry
	err := h.db.ForEach(entryPrefix, func(_, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns the entry of txid.
func (h *History) Get(txid string) (*Entry, error) {
	key, err := h.db.Get(append(append([]byte{}, indexPrefix...), txid...))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTx, txid)
	}
	if err != nil {
		return nil, err
	}
	data, err := h.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("read history entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode history entry: %w", err)
	}
	return &e, nil
}
