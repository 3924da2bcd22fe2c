// Package peer describes the nodes the wallet talks to and the HTTP+JSON
// transport used to reach them.
package peer

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/multiformats/go-multiaddr"
)

// ErrInvalidPeer is returned when a peer address cannot be parsed.
var ErrInvalidPeer = errors.New("invalid peer address")

// Peer is a node reachable over HTTP. Identity is the (Address, Port) pair.
type Peer struct {
	Address string `json:"ipv4_address"`
	Port    uint16 `json:"port"`
}

// String returns "host:port".
func (p Peer) String() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(int(p.Port)))
}

// URL returns the http URL for path on this peer.
func (p Peer) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + p.String() + path
}

// Validate checks that the peer has a host and a non-zero port.
func (p Peer) Validate() error {
	if p.Address == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPeer)
	}
	if p.Port == 0 {
		return fmt.Errorf("%w: port 0", ErrInvalidPeer)
	}
	return nil
}

// Multiaddr returns the peer as /ip4/<ip>/tcp/<port>, or /dns4/<host>/tcp/<port>
// when the address is a host name.
func (p Peer) Multiaddr() (multiaddr.Multiaddr, error) {
	proto := "dns4"
	if ip := net.ParseIP(p.Address); ip != nil {
		proto = "ip4"
		if ip.To4() == nil {
			proto = "ip6"
		}
	}
	return multiaddr.NewMultiaddr(fmt.Sprintf("/%s/%s/tcp/%d", proto, p.Address, p.Port))
}

// Parse accepts "host:port" or a multiaddr of the form /ip4/<ip>/tcp/<port>,
// /ip6/<ip>/tcp/<port> or /dns4/<host>/tcp/<port>.
func Parse(s string) (Peer, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") {
		return parseMultiaddr(s)
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %q: %v", ErrInvalidPeer, s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %q: bad port", ErrInvalidPeer, s)
	}
	p := Peer{Address: host, Port: uint16(port)}
	if err := p.Validate(); err != nil {
		return Peer{}, err
	}
	return p, nil
}

func parseMultiaddr(s string) (Peer, error) {
	ma, err := multiaddr.NewMultiaddr(s)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %q: %v", ErrInvalidPeer, s, err)
	}

	var host string
	for _, code := range []int{multiaddr.P_IP4, multiaddr.P_IP6, multiaddr.P_DNS4, multiaddr.P_DNS} {
		if v, err := ma.ValueForProtocol(code); err == nil {
			host = v
			break
		}
	}
	if host == "" {
		return Peer{}, fmt.Errorf("%w: %q: no ip4, ip6 or dns component", ErrInvalidPeer, s)
	}

	portStr, err := ma.ValueForProtocol(multiaddr.P_TCP)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %q: no tcp component", ErrInvalidPeer, s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %q: bad port", ErrInvalidPeer, s)
	}

	p := Peer{Address: host, Port: uint16(port)}
	if err := p.Validate(); err != nil {
		return Peer{}, err
	}
	return p, nil
}

// ParseList parses each entry with Parse. Empty entries are skipped.
func ParseList(entries []string) ([]Peer, error) {
	peers := make([]Peer, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		p, err := Parse(e)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, nil
}
