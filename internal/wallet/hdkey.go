package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 path m/44'/CoinType'/account'/change/index.
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44
	// CoinType is the hardened coin type used for imported keys.
	CoinType = bip32.FirstHardenedChild + 8888

	ChangeExternal = 0
	ChangeInternal = 1
)

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the master key of a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// Derive walks indices from k. Hardened indices include bip32.FirstHardenedChild.
func (k *HDKey) Derive(indices ...uint32) (*HDKey, error) {
	cur := k.key
	for _, idx := range indices {
		child, err := cur.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		cur = child
	}
	return &HDKey{key: cur}, nil
}

// DeriveAccountKey derives m/44'/CoinType'/account'/change/index.
func (k *HDKey) DeriveAccountKey(account, change, index uint32) (*HDKey, error) {
	return k.Derive(PurposeBIP44, CoinType, bip32.FirstHardenedChild+account, change, index)
}

// IsPrivate reports whether k holds a private key.
func (k *HDKey) IsPrivate() bool { return k.key.IsPrivate }

// Depth is 0 for the master key.
func (k *HDKey) Depth() uint8 { return k.key.Depth }

// Neuter returns the public half of k.
func (k *HDKey) Neuter() *HDKey { return &HDKey{key: k.key.PublicKey()} }

// PublicKeyBytes returns the 33-byte compressed public key.
func (k *HDKey) PublicKeyBytes() []byte { return k.key.PublicKey().Key }

// SigningKey returns k as a secp256k1 private key usable by the builder.
func (k *HDKey) SigningKey() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("signing key: extended key is public only")
	}
	// bip32 pads private keys to 33 bytes with a leading zero.
	raw := k.key.Key
	if len(raw) == crypto.PrivateKeySize+1 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// KeyFromMnemonic derives the signing key at account/index on the external
// chain of phrase.
func KeyFromMnemonic(phrase, passphrase string, account, index uint32) (*crypto.PrivateKey, error) {
	seed, err := SeedFromMnemonic(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DeriveAccountKey(account, ChangeExternal, index)
	if err != nil {
		return nil, err
	}
	return child.SigningKey()
}
