// klingnet-lite is a wallet that talks to a set of untrusted peers and only
// believes what a quorum of them agree on.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-lite/config"
	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/quorum"
	"github.com/Klingon-tech/klingnet-lite/internal/storage"
	"github.com/Klingon-tech/klingnet-lite/internal/vault"
	"github.com/Klingon-tech/klingnet-lite/internal/wallet"
	"golang.org/x/term"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Version {
		fmt.Printf("klingnet-lite %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if !flags.Help {
			os.Exit(1)
		}
		return
	}

	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(cfg.LogsDir(), logFile)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fatal("init logging: %v", err)
	}

	cli := &app{cfg: cfg}
	defer cli.close()

	cmd := flags.Args[0]
	args := flags.Args[1:]

	switch cmd {
	case "keygen":
		cli.cmdKeygen(args)
	case "import":
		cli.cmdImport(args)
	case "address":
		cli.cmdAddress()
	case "balance":
		cli.cmdBalance(args)
	case "utxos":
		cli.cmdUTXOs(args)
	case "send":
		cli.cmdSend(args)
	case "broadcast":
		cli.cmdBroadcast(args)
	case "history":
		cli.cmdHistory(args)
	case "peers":
		cli.cmdPeers()
	case "sign":
		cli.cmdSign(args)
	case "verify":
		cmdVerify(args)
	case "hash":
		cmdHash(args)
	case "merkle":
		cmdMerkle(args)
	case "version":
		fmt.Printf("klingnet-lite %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		cli.close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingnet-lite [global flags] <command> [flags]

%s
Wallet:
  keygen [--mnemonic]             Create a new encrypted key pair
  import --key <hex>              Import a private key
  import --mnemonic "..." [--passphrase <p>] [--account <n>] [--index <n>]
                                  Import a key derived from a recovery phrase
  address                         Show the wallet address
  sign <message>                  Sign a message with the wallet key

Network:
  balance [address]               Show balance agreed by the peers
  utxos [address]                 List confirmed and pending UTXOs
  send --to <addr> --amount <n> [--fee <n>] [--change <addr>] [--from <addr>]
                                  Build, sign and broadcast a payment
  broadcast <file|->              Broadcast a signed transaction (JSON)
  history [txid]                  Show broadcast transactions
  peers                           Show the peers in use

Tools:
  verify <pubkey> <message> <sig> Verify a signature
  hash [--hex] <data>             Double SHA-256 of data
  merkle [--hex] <leaf>...        Merkle root of leaves
  merkle --txs <file|->           Merkle root of a JSON transaction list
  version                         Show version
`, config.Usage)
}

// ── Shared state ───────────────────────────────────────────────────────

// app holds the resources opened lazily by commands.
type app struct {
	cfg *config.Config
	db  storage.DB
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Storage.Warn().Err(err).Msg("close database")
		}
		a.db = nil
	}
}

func (a *app) openDB() storage.DB {
	if a.db == nil {
		db, err := storage.NewBadger(a.cfg.DBDir())
		if err != nil {
			fatal("open database: %v", err)
		}
		a.db = db
	}
	return a.db
}

func (a *app) keystore() *vault.Keystore {
	v, err := vault.ForCipher(a.cfg.Wallet.Cipher)
	if err != nil {
		fatal("%v", err)
	}
	ks, err := vault.NewKeystore(a.cfg.KeystoreDir(), v,
		vault.WithFileNames(a.cfg.Wallet.KeyFile, a.cfg.Wallet.AESKeyFile))
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

// defaultAddress returns the stored public key, which is also the address.
func (a *app) defaultAddress() string {
	pub, err := a.keystore().PublicKey()
	if errors.Is(err, vault.ErrNoKeyFile) {
		fatal("no wallet key; run 'klingnet-lite keygen' or pass an address")
	}
	if err != nil {
		fatal("%v", err)
	}
	return pub
}

// client resolves the peer set and returns a wallet client bound to it.
func (a *app) client(ctx context.Context) *wallet.Client {
	transport := peer.NewHTTPTransport(a.cfg.Peers.Timeout)
	peers, err := resolvePeers(ctx, a.cfg, transport, peer.NewCache(a.openDB()))
	if err != nil {
		fatal("%v", err)
	}

	opts := []wallet.Option{wallet.WithHistory(wallet.NewHistory(a.openDB()))}
	if a.cfg.Peers.MinAgree > 0 {
		opts = append(opts, wallet.WithStrategy(quorum.Threshold{Min: a.cfg.Peers.MinAgree}))
	}
	return wallet.NewClient(peers, transport, opts...)
}

// requestContext is cancelled on interrupt. It carries no deadline of its own:
// a command runs several quorum rounds in sequence and each request is
// already bounded by peers.timeout in the transport.
func (a *app) requestContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolvePeers returns the static peers followed by whatever the seed advertises.
// When the seed is unreachable the last discovered set is used instead.
func resolvePeers(ctx context.Context, cfg *config.Config, t peer.Transport, cache *peer.Cache) ([]peer.Peer, error) {
	static, err := peer.ParseList(cfg.Peers.Static)
	if err != nil {
		return nil, err
	}
	peers := append([]peer.Peer(nil), static...)

	if cfg.Peers.Seed != "" {
		seed, err := peer.Parse(cfg.Peers.Seed)
		if err != nil {
			return nil, err
		}
		dctx, cancel := context.WithTimeout(ctx, cfg.Peers.Timeout)
		discovered, err := peer.Discover(dctx, t, seed)
		cancel()
		if err == nil {
			if err := cache.Save(discovered, "seed"); err != nil {
				log.Peer.Warn().Err(err).Msg("failed to cache peers")
			}
		} else {
			log.Peer.Warn().Err(err).Str("seed", seed.String()).Msg("discovery failed, using cached peers")
			discovered, err = cache.Load(cfg.Peers.CacheMaxAge)
			if err != nil {
				return nil, fmt.Errorf("load cached peers: %w", err)
			}
		}
		// Duplicates are kept: every listed peer gets a vote.
		peers = append(peers, discovered...)
	}

	if len(peers) == 0 {
		return nil, errors.New("no peers: set --seed or --peers")
	}
	log.Peer.Debug().Int("count", len(peers)).Msg("peers resolved")
	return peers, nil
}

// ── Password helpers ───────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// readNewPassword prompts twice and requires both entries to match.
func readNewPassword() []byte {
	password, err := readPassword("New password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer vault.Zero(confirm)
	if string(password) != string(confirm) {
		vault.Zero(password)
		fatal("passwords do not match")
	}
	return password
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
