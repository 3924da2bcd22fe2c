package vault

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id defaults.
const (
	XChaChaSaltSize          = 16
	XChaChaDefaultIterations = 3
	DefaultArgonMemory       = 64 * 1024 // KiB
	DefaultArgonThreads      = 4
)

// XChaChaVault derives keys with Argon2id and encrypts with
// XChaCha20-Poly1305. The 24-byte nonce is stored as the IV.
type XChaChaVault struct {
	Memory  uint32 // in KiB
	Threads uint8
}

// NewXChaChaVault returns a vault with the default Argon2id parameters.
func NewXChaChaVault() XChaChaVault {
	return XChaChaVault{Memory: DefaultArgonMemory, Threads: DefaultArgonThreads}
}

// DeriveKey runs Argon2id with iterations as the time cost.
func (v XChaChaVault) DeriveKey(password, salt []byte, iterations uint32) []byte {
	return argon2.IDKey(password, salt, iterations, v.Memory, v.Threads, KeySize)
}

// Encrypt seals plaintext under a random nonce.
func (v XChaChaVault) Encrypt(key, plaintext []byte) (string, string, error) {
	if err := checkKey(key); err != nil {
		return "", "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", "", fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), hex.EncodeToString(nonce), nil
}

// Decrypt opens the sealed ciphertext.
func (v XChaChaVault) Decrypt(key []byte, ivHex, ciphertextHex string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	nonce, err := hex.DecodeString(ivHex)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce", ErrDecrypt)
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil || len(ciphertext) < chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// Cipher implements Vault.
func (v XChaChaVault) Cipher() string { return CipherXChaCha }

// KDF implements Vault.
func (v XChaChaVault) KDF() string { return KDFArgon2id }

// SaltSize implements Vault.
func (v XChaChaVault) SaltSize() int { return XChaChaSaltSize }

// DefaultIterations implements Vault.
func (v XChaChaVault) DefaultIterations() uint32 { return XChaChaDefaultIterations }
