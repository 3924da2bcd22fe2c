// klingnet-peersim runs one or more simulated peers for local testing of
// klingnet-lite.
//
// Usage:
//
//	klingnet-peersim [--host 127.0.0.1] [--port 8001] [--count 3] [--faulty 1] [--fixture ledger.yaml]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/peersim"
)

func main() {
	fs := flag.NewFlagSet("klingnet-peersim", flag.ExitOnError)
	host := fs.String("host", "127.0.0.1", "Listen address")
	port := fs.Uint("port", 8001, "Port of the first peer")
	count := fs.Int("count", 3, "Number of peers to run on consecutive ports")
	faulty := fs.Int("faulty", 0, "Number of peers (from the last) that answer dishonestly")
	fixture := fs.String("fixture", "", "YAML ledger fixture")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Parse(os.Args[1:])

	log.SetOutput(os.Stderr, *logLevel)

	if *count < 1 || *faulty < 0 || *faulty > *count {
		fatal("need count >= 1 and 0 <= faulty <= count")
	}
	if *port == 0 || *port+uint(*count)-1 > 65535 {
		fatal("port range %d..%d is invalid", *port, *port+uint(*count)-1)
	}

	f := &peersim.Fixture{}
	if *fixture != "" {
		var err error
		if f, err = peersim.LoadFixture(*fixture); err != nil {
			fatal("%v", err)
		}
	}

	peers := make([]peer.Peer, 0, *count+len(f.Peers))
	for i := 0; i < *count; i++ {
		peers = append(peers, peer.Peer{Address: *host, Port: uint16(*port) + uint16(i)})
	}
	peers = append(peers, f.PeerList()...)

	errCh := make(chan error, *count)
	for i := 0; i < *count; i++ {
		srv := peersim.NewServer(
			peersim.NewLedgerFromFixture(f),
			peersim.WithPeers(peers),
			peersim.WithFaulty(i >= *count-*faulty),
		)
		addr := peers[i].String()
		go func() { errCh <- fmt.Errorf("%s: %w", addr, srv.Run(addr)) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		fatal("%v", err)
	case <-sigCh:
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
