package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Key sizes.
const (
	PrivateKeySize = 32
	PublicKeySize  = 33 // compressed SEC1
)

// ErrInvalidKeyEncoding is returned when a hex key does not decode to a
// usable key of the expected length.
var ErrInvalidKeyEncoding = errors.New("invalid key encoding")

// Signer signs messages with a private key using ECDSA/secp256k1.
type Signer interface {
	// Sign produces a hex DER signature over SHA-256(msg).
	Sign(msg []byte) (string, error)
	// PublicKeyHex returns the hex compressed public key.
	PublicKeyHex() string
}

// Verifier verifies ECDSA/secp256k1 signatures.
type Verifier interface {
	// Verify checks a hex DER signature over msg against a hex public key.
	Verify(pubKeyHex string, msg []byte, sigHex string) bool
}

// PrivateKey wraps a secp256k1 private key for ECDSA signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte scalar in [1, N-1].
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKeyEncoding, PrivateKeySize, len(b))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: private key out of range", ErrInvalidKeyEncoding)
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// PrivateKeyFromHex decodes a hex-encoded 32-byte private key.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	defer zeroBytes(b)
	return PrivateKeyFromBytes(b)
}

// Sign produces a DER-encoded ECDSA signature over SHA-256(msg), hex encoded.
// Signatures are deterministic (RFC6979) and low-S.
func (pk *PrivateKey) Sign(msg []byte) (string, error) {
	if pk.key.Key.IsZero() {
		return "", fmt.Errorf("%w: key has been zeroed", ErrInvalidKeyEncoding)
	}
	digest := Hash(msg)
	sig := ecdsa.Sign(pk.key, digest[:])
	return hex.EncodeToString(sig.Serialize()), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// PublicKeyHex returns the compressed public key as hex.
func (pk *PrivateKey) PublicKeyHex() string {
	return hex.EncodeToString(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Hex returns the private key scalar as hex.
func (pk *PrivateKey) Hex() string {
	b := pk.Serialize()
	defer zeroBytes(b)
	return hex.EncodeToString(b)
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// GenerateKeyPair produces a fresh keypair as (private scalar hex, compressed public key hex).
func GenerateKeyPair() (string, string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", "", err
	}
	defer key.Zero()
	return key.Hex(), key.PublicKeyHex(), nil
}

// Sign signs msg with a hex private key and returns (signature hex, public key hex).
func Sign(privateKeyHex string, msg []byte) (string, string, error) {
	key, err := PrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return "", "", err
	}
	defer key.Zero()

	sig, err := key.Sign(msg)
	if err != nil {
		return "", "", err
	}
	return sig, key.PublicKeyHex(), nil
}

// Verify checks a hex DER signature over msg against a hex compressed public key.
// Returns false on any decode error.
func Verify(publicKeyHex string, msg []byte, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := Hash(msg)
	return sig.Verify(digest[:], pubKey)
}

// ECDSAVerifier implements the Verifier interface.
type ECDSAVerifier struct{}

// Verify checks a hex DER signature over msg against a hex public key.
func (v ECDSAVerifier) Verify(pubKeyHex string, msg []byte, sigHex string) bool {
	return Verify(pubKeyHex, msg, sigHex)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
