package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/wallet"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// addressArg returns the single optional address argument, defaulting to the
// wallet's own address.
func (a *app) addressArg(name string, args []string) string {
	switch len(args) {
	case 0:
		return a.defaultAddress()
	case 1:
		return args[0]
	default:
		fatal("usage: klingnet-lite %s [address]", name)
		return ""
	}
}

// ── balance ────────────────────────────────────────────────────────────

func (a *app) cmdBalance(args []string) {
	addr := a.addressArg("balance", args)
	ctx, cancel := a.requestContext()
	defer cancel()

	bal, err := a.client(ctx).Balance(ctx, addr)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Address:     %s\n", addr)
	fmt.Printf("Confirmed:   %d\n", bal.Confirmed)
	fmt.Printf("Unconfirmed: %d\n", bal.Unconfirmed)
}

// ── utxos ──────────────────────────────────────────────────────────────

func (a *app) cmdUTXOs(args []string) {
	addr := a.addressArg("utxos", args)
	ctx, cancel := a.requestContext()
	defer cancel()

	confirmed, pending, err := a.client(ctx).FetchUTXOs(ctx, addr)
	if err != nil {
		fatal("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tAMOUNT\tORIGIN")
	printUTXOs(w, "confirmed", confirmed)
	printUTXOs(w, "pending", pending)
	w.Flush()
}

func printUTXOs(w io.Writer, status string, utxos []tx.UTXO) {
	for _, u := range utxos {
		origin := "-"
		if u.Origin != nil {
			origin = u.Origin.String()
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", status, u.Amount, origin)
	}
}

// ── send ───────────────────────────────────────────────────────────────

func (a *app) cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Amount to send")
	fee := fs.Uint64("fee", a.cfg.Send.Fee, "Transaction fee")
	change := fs.String("change", "", "Change address (default: source address)")
	from := fs.String("from", "", "Source address (default: wallet address)")
	fs.Parse(args)

	if *to == "" || *amount == 0 {
		fatal("--to and --amount are required")
	}

	key := a.unlock()
	defer key.Zero()

	source := *from
	if source == "" {
		source = key.PublicKeyHex()
	}
	changeAddr := *change
	if changeAddr == "" {
		changeAddr = source
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	res, err := a.client(ctx).Send(ctx, wallet.SendRequest{
		Key:           key,
		From:          source,
		To:            *to,
		Amount:        *amount,
		Fee:           *fee,
		ChangeAddress: changeAddr,
	})
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		fatal("%v", err)
	case wallet.IsNoQuorum(err):
		fatal("peers did not agree: %v", err)
	case err != nil:
		fatal("send: %v", err)
	}

	fmt.Printf("TxID:     %s\n", res.Tx.TxID())
	fmt.Printf("Accepted: %t\n", res.Accepted)
	fmt.Printf("Votes:    %s\n", res.Votes)
	if !res.Accepted {
		os.Exit(1)
	}
}

// ── broadcast ──────────────────────────────────────────────────────────

func (a *app) cmdBroadcast(args []string) {
	if len(args) != 1 {
		fatal("usage: klingnet-lite broadcast <file|->")
	}
	data, err := readInput(args[0])
	if err != nil {
		fatal("%v", err)
	}

	var t tx.Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		fatal("parse transaction: %v", err)
	}
	// Refuse to send anything the peers would have to reject anyway.
	if _, err := tx.FromTransaction(&t, crypto.ECDSAVerifier{}); err != nil {
		fatal("invalid transaction: %v", err)
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	accepted, res, err := a.client(ctx).Broadcast(ctx, &t)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("TxID:     %s\n", *t.TxID)
	fmt.Printf("Accepted: %t\n", accepted)
	fmt.Printf("Votes:    %s\n", res)
	if !accepted {
		os.Exit(1)
	}
}

// readInput reads a file, or stdin when name is "-".
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// ── history ────────────────────────────────────────────────────────────

func (a *app) cmdHistory(args []string) {
	h := wallet.NewHistory(a.openDB())

	if len(args) == 1 {
		e, err := h.Get(args[0])
		if err != nil {
			fatal("%v", err)
		}
		out, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			fatal("%v", err)
		}
		fmt.Println(string(out))
		return
	}
	if len(args) > 1 {
		fatal("usage: klingnet-lite history [txid]")
	}

	entries, err := h.List()
	if err != nil {
		fatal("%v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No transactions.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTXID\tACCEPTED\tVOTES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d/%d (%d peers)\n",
			formatTime(e.Time), e.TxID, e.Accepted, e.Agreed, e.Responded, e.Peers)
	}
	w.Flush()
}

// ── peers ──────────────────────────────────────────────────────────────

func (a *app) cmdPeers() {
	ctx, cancel := a.requestContext()
	defer cancel()

	transport := peer.NewHTTPTransport(a.cfg.Peers.Timeout)
	cache := peer.NewCache(a.openDB())
	peers, err := resolvePeers(ctx, a.cfg, transport, cache)
	if err != nil {
		fatal("%v", err)
	}
	for _, p := range peers {
		fmt.Println(p)
	}

	if n, err := cache.Count(); err == nil && n > 0 {
		fmt.Fprintf(os.Stderr, "(%d peers cached)\n", n)
	}
}
