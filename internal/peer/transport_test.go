package peer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// serverPeer returns the Peer for an httptest server.
func serverPeer(t *testing.T, srv *httptest.Server) Peer {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split %s: %v", srv.URL, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		t.Fatalf("parse port %s: %v", portStr, err)
	}
	return Peer{Address: host, Port: uint16(port)}
}

func TestHTTPTransport_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/utxos/address/addr0" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"amount":100,"address":"addr0"}]`))
	}))
	defer srv.Close()

	body, err := NewHTTPTransport(time.Second).Do(context.Background(), serverPeer(t, srv), http.MethodGet, "/utxos/address/addr0", nil)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if string(body) != `[{"amount":100,"address":"addr0"}]` {
		t.Errorf("Do() body = %s", body)
	}
}

func TestHTTPTransport_PostJSON(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(time.Second).Do(context.Background(), serverPeer(t, srv), http.MethodPost, "/validate/tx", []byte(`{"version":1}`))
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if gotBody != `{"version":1}` {
		t.Errorf("server got body %q", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("server got Content-Type %q", gotType)
	}
}

func TestHTTPTransport_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(time.Second).Do(context.Background(), serverPeer(t, srv), http.MethodGet, "/", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Do() error = %v, want ErrTransport", err)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Do() error = %T, want *StatusError", err)
	}
	if se.Code != http.StatusInternalServerError {
		t.Errorf("StatusError.Code = %d", se.Code)
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTPTransport(50*time.Millisecond).Do(context.Background(), serverPeer(t, srv), http.MethodGet, "/", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Do() error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded in chain", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout did not bound the request")
	}
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	p := serverPeer(t, srv)
	srv.Close()

	if _, err := NewHTTPTransport(time.Second).Do(context.Background(), p, http.MethodGet, "/", nil); !errors.Is(err, ErrTransport) {
		t.Errorf("Do() error = %v, want ErrTransport", err)
	}
}

func TestHTTPTransport_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(time.Second)
	tr.maxBodySize = 32
	if _, err := tr.Do(context.Background(), serverPeer(t, srv), http.MethodGet, "/", nil); !errors.Is(err, ErrTransport) {
		t.Errorf("Do() error = %v, want ErrTransport", err)
	}
}

func TestNewHTTPTransport_DefaultTimeout(t *testing.T) {
	if got := NewHTTPTransport(0).Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultTimeout)
	}
}
