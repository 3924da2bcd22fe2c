package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-lite/internal/vault"
	"github.com/Klingon-tech/klingnet-lite/internal/wallet"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
)

// ── keygen ─────────────────────────────────────────────────────────────

func (a *app) cmdKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	useMnemonic := fs.Bool("mnemonic", false, "Derive the key from a new recovery phrase")
	fs.Parse(args)

	ks := a.keystore()
	if ks.Exists() {
		fatal("wallet already exists in %s", a.cfg.KeystoreDir())
	}

	var (
		key    *crypto.PrivateKey
		phrase string
		err    error
	)
	if *useMnemonic {
		phrase, err = wallet.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		key, err = wallet.KeyFromMnemonic(phrase, "", 0, 0)
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		fatal("generate key: %v", err)
	}
	defer key.Zero()

	pub := a.storeKey(ks, key)

	if phrase != "" {
		fmt.Println("Recovery phrase (write it down, it is shown only once):")
		fmt.Println()
		fmt.Printf("  %s\n", phrase)
		fmt.Println()
	}
	fmt.Printf("Address: %s\n", pub)
}

// ── import ─────────────────────────────────────────────────────────────

func (a *app) cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	keyHex := fs.String("key", "", "Private key (hex)")
	phrase := fs.String("mnemonic", "", "Recovery phrase")
	passphrase := fs.String("passphrase", "", "Optional recovery phrase passphrase")
	account := fs.Uint("account", 0, "HD account index")
	index := fs.Uint("index", 0, "HD address index")
	fs.Parse(args)

	if (*keyHex == "") == (*phrase == "") {
		fatal("exactly one of --key or --mnemonic is required")
	}

	ks := a.keystore()
	if ks.Exists() {
		fatal("wallet already exists in %s", a.cfg.KeystoreDir())
	}

	var (
		key *crypto.PrivateKey
		err error
	)
	if *keyHex != "" {
		key, err = crypto.PrivateKeyFromHex(strings.TrimSpace(*keyHex))
	} else {
		key, err = wallet.KeyFromMnemonic(*phrase, *passphrase, uint32(*account), uint32(*index))
	}
	if err != nil {
		fatal("%v", err)
	}
	defer key.Zero()

	pub := a.storeKey(ks, key)
	fmt.Printf("Imported address: %s\n", pub)
}

// storeKey encrypts key under a new password and writes both key files.
func (a *app) storeKey(ks *vault.Keystore, key *crypto.PrivateKey) string {
	password := readNewPassword()
	defer vault.Zero(password)

	pub, err := ks.Create(password, a.cfg.Wallet.Iterations, key.Hex())
	if err != nil {
		fatal("create wallet: %v", err)
	}
	return pub
}

// unlock prompts for the wallet password and decrypts the signing key.
func (a *app) unlock() *crypto.PrivateKey {
	ks := a.keystore()
	password, err := readPassword("Wallet password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer vault.Zero(password)

	key, err := ks.Unlock(password)
	switch {
	case errors.Is(err, vault.ErrNoKeyFile):
		fatal("no wallet key; run 'klingnet-lite keygen' first")
	case errors.Is(err, vault.ErrDecrypt):
		fatal("wrong password")
	case err != nil:
		fatal("unlock wallet: %v", err)
	}
	return key
}

// ── address ────────────────────────────────────────────────────────────

func (a *app) cmdAddress() {
	fmt.Println(a.defaultAddress())
}

// ── sign / verify ──────────────────────────────────────────────────────

func (a *app) cmdSign(args []string) {
	if len(args) != 1 {
		fatal("usage: klingnet-lite sign <message>")
	}
	key := a.unlock()
	defer key.Zero()

	sig, err := key.Sign([]byte(args[0]))
	if err != nil {
		fatal("sign: %v", err)
	}
	fmt.Printf("Public key: %s\n", key.PublicKeyHex())
	fmt.Printf("Signature:  %s\n", sig)
}

func cmdVerify(args []string) {
	if len(args) != 3 {
		fatal("usage: klingnet-lite verify <pubkey> <message> <signature>")
	}
	if crypto.Verify(args[0], []byte(args[1]), args[2]) {
		fmt.Println("valid")
		return
	}
	fmt.Println("invalid")
	os.Exit(1)
}
