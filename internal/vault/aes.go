package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// AES parameters of the legacy key file format.
const (
	AESSaltSize          = 8
	AESDefaultIterations = 600_000
)

// AESVault derives keys with PBKDF2-HMAC-SHA256 and encrypts with
// AES-256-CBC and PKCS#7 padding under a random 16-byte IV.
type AESVault struct{}

// DeriveKey runs PBKDF2-HMAC-SHA256.
func (AESVault) DeriveKey(password, salt []byte, iterations uint32) []byte {
	return pbkdf2.Key(password, salt, int(iterations), KeySize, sha256.New)
}

// Encrypt pads plaintext with PKCS#7 and encrypts it in CBC mode.
func (AESVault) Encrypt(key, plaintext []byte) (string, string, error) {
	if err := checkKey(key); err != nil {
		return "", "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	defer Zero(padded)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(ciphertext), hex.EncodeToString(iv), nil
}

// Decrypt decrypts CBC ciphertext and strips the padding.
func (AESVault) Decrypt(key []byte, ivHex, ciphertextHex string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv", ErrDecrypt)
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext length", ErrDecrypt)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	out, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		Zero(plain)
		return nil, err
	}
	return out, nil
}

// Cipher implements Vault.
func (AESVault) Cipher() string { return CipherAESCBC }

// KDF implements Vault.
func (AESVault) KDF() string { return KDFPBKDF2 }

// SaltSize implements Vault.
func (AESVault) SaltSize() int { return AESSaltSize }

// DefaultIterations implements Vault.
func (AESVault) DefaultIterations() uint32 { return AESDefaultIterations }

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return data[:len(data)-n], nil
}
