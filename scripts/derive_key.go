// derive_key.go prints the public key of a hex-encoded private key file and
// a signature over an optional message, for seeding peersim fixtures.
// Usage: go run scripts/derive_key.go <keyfile> [message]
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [message]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromHex(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	// The public key doubles as the address in fixtures.
	fmt.Printf("pubkey=%s\n", key.PublicKeyHex())
	if len(os.Args) > 2 {
		sig, err := key.Sign([]byte(os.Args[2]))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("signature=%s\n", sig)
	}
}
