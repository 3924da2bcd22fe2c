package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport defaults.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 4 << 20
)

// ErrTransport marks a failure to get a usable response from one peer.
var ErrTransport = errors.New("peer transport error")

// StatusError is returned when a peer answers with a non-2xx status.
type StatusError struct {
	Peer Peer
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("peer %s: http %d: %s", e.Peer, e.Code, e.Body)
}

// Unwrap makes errors.Is(err, ErrTransport) hold for status errors.
func (e *StatusError) Unwrap() error { return ErrTransport }

// Transport sends one request to one peer and returns the response body.
type Transport interface {
	Do(ctx context.Context, p Peer, method, path string, body []byte) ([]byte, error)
}

// HTTPTransport speaks HTTP+JSON to peers.
type HTTPTransport struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
}

// NewHTTPTransport creates a transport with a per-request timeout.
// A non-positive timeout selects DefaultTimeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		client:      &http.Client{},
		timeout:     timeout,
		maxBodySize: DefaultMaxBodySize,
	}
}

// Timeout returns the per-request timeout.
func (t *HTTPTransport) Timeout() time.Duration { return t.timeout }

// Do issues method path to p. Every failure wraps ErrTransport.
func (t *HTTPTransport) Do(ctx context.Context, p Peer, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.URL(path), rd)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, p.URL(path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response from %s: %w", ErrTransport, p, err)
	}
	if int64(len(data)) > t.maxBodySize {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", ErrTransport, p, t.maxBodySize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &StatusError{Peer: p, Code: resp.StatusCode, Body: msg}
	}
	return data, nil
}
