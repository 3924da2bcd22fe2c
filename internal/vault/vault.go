// Package vault protects the signing key at rest with a password-derived
// symmetric key.
package vault

import (
	"errors"
	"fmt"
)

// KeySize is the length of every derived symmetric key.
const KeySize = 32

// Cipher tags stored in key files. The empty tag is the legacy
// PBKDF2 + AES-256-CBC format.
const (
	CipherAESCBC   = "aes-256-cbc"
	CipherXChaCha  = "xchacha20-poly1305"
	KDFPBKDF2      = "pbkdf2-sha256"
	KDFArgon2id    = "argon2id"
	legacyCipherID = ""
)

// Errors returned by vaults and the keystore.
var (
	ErrDecrypt       = errors.New("decryption failed (wrong password or corrupted data)")
	ErrUnknownCipher = errors.New("unknown cipher")
	ErrKeySize       = errors.New("symmetric key must be 32 bytes")
)

// Vault derives symmetric keys from passwords and encrypts small secrets.
type Vault interface {
	// DeriveKey stretches password with salt into a 32-byte key.
	DeriveKey(password, salt []byte, iterations uint32) []byte
	// Encrypt returns hex ciphertext and the hex IV (or nonce) it used.
	Encrypt(key, plaintext []byte) (ciphertextHex, ivHex string, err error)
	// Decrypt reverses Encrypt. Any authentication or padding failure is ErrDecrypt.
	Decrypt(key []byte, ivHex, ciphertextHex string) ([]byte, error)
	// Cipher returns the cipher tag written to key files.
	Cipher() string
	// KDF returns the key derivation tag written to key files.
	KDF() string
	// SaltSize is the salt length used when creating a key file.
	SaltSize() int
	// DefaultIterations is the work factor used when none is configured.
	DefaultIterations() uint32
}

// ForCipher returns the vault for a cipher tag.
func ForCipher(tag string) (Vault, error) {
	switch tag {
	case legacyCipherID, CipherAESCBC:
		return AESVault{}, nil
	case CipherXChaCha:
		return NewXChaChaVault(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, tag)
	}
}

func checkKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d", ErrKeySize, len(key))
	}
	return nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
