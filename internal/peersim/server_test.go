package peersim

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/quorum"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

func startServer(t *testing.T, s *Server) peer.Peer {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	p, err := peer.Parse(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("Parse(%s) error: %v", srv.URL, err)
	}
	return p
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func post(t *testing.T, h http.Handler, path string, body []byte) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("POST %s status = %d: %s", path, w.Code, w.Body)
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	return out
}

func TestServer_UTXOs(t *testing.T) {
	l := NewLedger()
	l.Credit("addr0", 100, true)
	l.Credit("addr0", 5, false)
	h := NewServer(l).Handler()

	w := get(t, h, "/utxos/address/addr0")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `[{"amount":100,"address":"addr0"}]` {
		t.Errorf("confirmed = %d %s", w.Code, w.Body)
	}
	w = get(t, h, "/utxos_mempool/address/addr0")
	if strings.TrimSpace(w.Body.String()) != `[{"amount":5,"address":"addr0"}]` {
		t.Errorf("pending = %s", w.Body)
	}
	w = get(t, h, "/utxos/address/nobody")
	if strings.TrimSpace(w.Body.String()) != `[]` {
		t.Errorf("unknown address = %s, want []", w.Body)
	}
}

func TestServer_EscapedAddress(t *testing.T) {
	l := NewLedger()
	l.Credit("a/b", 3, true)
	w := get(t, NewServer(l).Handler(), "/utxos/address/a%2Fb")
	if strings.TrimSpace(w.Body.String()) != `[{"amount":3,"address":"a/b"}]` {
		t.Errorf("escaped address = %d %s", w.Code, w.Body)
	}
}

func TestServer_Discover(t *testing.T) {
	peers := []peer.Peer{{Address: "10.0.0.1", Port: 8001}, {Address: "10.0.0.2", Port: 8002}}
	s := NewServer(NewLedger(), WithPeers(peers))
	p := startServer(t, s)

	got, err := peer.Discover(context.Background(), peer.NewHTTPTransport(time.Second), p)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(got) != 2 || got[0] != peers[0] || got[1] != peers[1] {
		t.Errorf("Discover() = %v, want %v", got, peers)
	}
}

func TestServer_Validate(t *testing.T) {
	l := NewLedger()
	l.Credit("a", 100, true)
	h := NewServer(l).Handler()

	id := signedTx(t, []tx.UTXO{{Amount: 100, Address: "a"}}, []tx.Output{{Amount: 90, Address: "b"}})
	body, err := id.Transaction().CanonicalBytes()
	if err != nil {
		t.Fatalf("CanonicalBytes() error: %v", err)
	}

	v := post(t, h, "/validate/tx", body)
	if v["valid"] != true || v["txid"] != id.TxID().String() {
		t.Errorf("verdict = %v", v)
	}

	// Inputs are now spent.
	v = post(t, h, "/validate/tx", body)
	if v["valid"] != false {
		t.Errorf("double spend verdict = %v", v)
	}
}

func TestServer_ValidateRejects(t *testing.T) {
	l := NewLedger()
	l.Credit("a", 100, true)
	h := NewServer(l).Handler()

	id := signedTx(t, []tx.UTXO{{Amount: 100, Address: "a"}}, []tx.Output{{Amount: 90, Address: "b"}})

	tampered := id.Transaction()
	tampered.Outputs[0].Amount = 95
	badSig, _ := tampered.CanonicalBytes()

	wrongID := id.Transaction()
	zero := strings.Repeat("0", 64)
	wrongID.TxID = &zero
	badID, _ := wrongID.CanonicalBytes()

	unsigned := id.Transaction()
	unsigned.Signature = nil
	noSig, _ := unsigned.CanonicalBytes()

	overspend := signedTx(t, []tx.UTXO{{Amount: 100, Address: "a"}}, []tx.Output{{Amount: 100, Address: "b"}}).Transaction()
	overspend.Outputs[0].Amount = 200
	over, _ := overspend.CanonicalBytes()

	for name, body := range map[string][]byte{
		"tampered output": badSig,
		"wrong txid":      badID,
		"missing sig":     noSig,
		"outputs exceed":  over,
	} {
		v := post(t, h, "/validate/tx", body)
		if v["valid"] != false {
			t.Errorf("%s: verdict = %v, want invalid", name, v)
		}
	}
	if got := l.Confirmed("a"); len(got) != 1 {
		t.Errorf("rejected transactions changed the ledger: %+v", got)
	}
}

func TestServer_ValidateBadJSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewServer(NewLedger()).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate/tx", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServer_Faulty(t *testing.T) {
	l := NewLedger()
	l.Credit("a", 100, true)
	h := NewServer(l, WithFaulty(true)).Handler()

	var utxos []tx.UTXO
	if err := json.Unmarshal(get(t, h, "/utxos/address/a").Body.Bytes(), &utxos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(utxos) != 2 || utxos[0].Amount == 100 {
		t.Errorf("faulty confirmed = %+v, want inflated", utxos)
	}
	if l.Confirmed("a")[0].Amount != 100 {
		t.Error("faulty reporting must not change the ledger")
	}

	v := post(t, h, "/validate/tx", []byte(`{"version":1,"inputs":[],"outputs":[],"signature":null,"txid":null,"public_key":null}`))
	if v["valid"] != true {
		t.Errorf("faulty verdict on garbage = %v, want inverted", v)
	}
}

// One liar among three honest peers cannot move the vote.
func TestServer_QuorumOutvotesFaultyPeer(t *testing.T) {
	var peers []peer.Peer
	for i := 0; i < 4; i++ {
		l := NewLedger()
		l.Credit("a", 100, true)
		peers = append(peers, startServer(t, NewServer(l, WithFaulty(i == 0))))
	}
	q := quorum.New(peers, peer.NewHTTPTransport(2*time.Second), nil)

	utxos, res, err := q.ConfirmedUTXOs(context.Background(), "a")
	if err != nil {
		t.Fatalf("ConfirmedUTXOs() error: %v", err)
	}
	if len(utxos) != 1 || utxos[0].Amount != 100 {
		t.Errorf("utxos = %+v, want honest answer", utxos)
	}
	if res.Agreed != 3 || res.Responded != 4 {
		t.Errorf("result = %+v", res)
	}

	id := signedTx(t, []tx.UTXO{{Amount: 100, Address: "a"}}, []tx.Output{{Amount: 60, Address: "b"}, {Amount: 35, Address: "a"}})
	ok, res, err := q.BroadcastTransaction(context.Background(), id.Transaction())
	if err != nil {
		t.Fatalf("BroadcastTransaction() error: %v", err)
	}
	if !ok || res.Agreed != 3 {
		t.Errorf("broadcast = %v %+v, want accepted by 3", ok, res)
	}
}
