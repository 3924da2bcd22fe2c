package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-lite/internal/storage"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

func TestHistory_RecordList(t *testing.T) {
	db := storage.NewMemory()
	h := NewHistory(db)
	base := time.Unix(1_700_000_000, 0).UTC()

	for i, id := range []string{"bb", "aa", "cc"} {
		err := h.Record(Entry{TxID: id, Accepted: i != 1, Agreed: 2, Responded: 3, Peers: 3, Time: base.Add(time.Duration(i) * time.Second)})
		if err != nil {
			t.Fatalf("Record(%s) error: %v", id, err)
		}
	}

	entries, err := h.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(entries))
	}
	for i, want := range []string{"bb", "aa", "cc"} {
		if entries[i].TxID != want {
			t.Errorf("entry %d = %s, want %s (time order)", i, entries[i].TxID, want)
		}
	}
	if entries[1].Accepted {
		t.Error("entry aa should be rejected")
	}

	// Everything lives under the history namespace.
	err = db.ForEach(nil, func(key, _ []byte) error {
		if len(key) < len(HistoryPrefix) || string(key[:len(HistoryPrefix)]) != HistoryPrefix {
			t.Errorf("key %q outside %q", key, HistoryPrefix)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
}

func TestHistory_Get(t *testing.T) {
	h := NewHistory(storage.NewMemory())
	ver := &tx.Transaction{Version: tx.Version, Inputs: []tx.UTXO{{Amount: 1, Address: "a"}}}
	if err := h.Record(Entry{TxID: "ab", Tx: ver, Accepted: true}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	e, err := h.Get("ab")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !e.Accepted || e.Tx == nil || e.Tx.Inputs[0].Amount != 1 {
		t.Errorf("Get() = %+v", e)
	}
	if e.Time.IsZero() {
		t.Error("Record should stamp a zero time")
	}

	if _, err := h.Get("missing"); !errors.Is(err, ErrUnknownTx) {
		t.Errorf("Get(missing) error = %v, want ErrUnknownTx", err)
	}
}

func TestHistory_ReRecordReplaces(t *testing.T) {
	h := NewHistory(storage.NewMemory())
	if err := h.Record(Entry{TxID: "ab", Accepted: false, Time: time.Unix(1, 0)}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := h.Record(Entry{TxID: "ab", Accepted: true, Time: time.Unix(2, 0)}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	entries, err := h.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 1 || !entries[0].Accepted {
		t.Errorf("List() = %+v, want the single latest entry", entries)
	}
}

func TestHistory_EmptyTxID(t *testing.T) {
	if err := NewHistory(storage.NewMemory()).Record(Entry{}); err == nil {
		t.Error("Record without txid should fail")
	}
}

func TestHistory_Badger(t *testing.T) {
	db, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()

	h := NewHistory(db)
	if err := h.Record(Entry{TxID: "ab", Accepted: true}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	e, err := h.Get("ab")
	if err != nil || !e.Accepted {
		t.Errorf("Get() = %+v, %v", e, err)
	}
}
