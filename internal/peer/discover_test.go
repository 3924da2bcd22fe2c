package peer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DiscoverPath {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"ipv4_address":"10.0.0.1","port":8000},
			{"ipv4_address":"","port":8001},
			{"ipv4_address":"10.0.0.2","port":0},
			{"ipv4_address":"10.0.0.3","port":8003},
			{"ipv4_address":"10.0.0.1","port":8000}
		]`))
	}))
	defer srv.Close()

	peers, err := Discover(context.Background(), NewHTTPTransport(time.Second), serverPeer(t, srv))
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []Peer{{"10.0.0.1", 8000}, {"10.0.0.3", 8003}, {"10.0.0.1", 8000}}
	if len(peers) != len(want) {
		t.Fatalf("Discover() = %+v, want %+v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Errorf("peer %d = %+v, want %+v", i, peers[i], want[i])
		}
	}
}

func TestDiscover_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := Discover(context.Background(), NewHTTPTransport(time.Second), serverPeer(t, srv))
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Discover() error = %v, want ErrTransport", err)
	}
}
