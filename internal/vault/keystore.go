package vault

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
)

// Default file names inside the keystore directory.
const (
	DefaultKeyPairFile = "key_pair_data.json"
	DefaultAESKeyFile  = "aes_key_data.json"
)

// Keystore errors.
var (
	ErrExists      = errors.New("key file already exists")
	ErrNoKeyFile   = errors.New("key file not found")
	ErrKeyMismatch = errors.New("decrypted private key does not match stored public key")
)

// AESKeyRecord describes how to re-derive the symmetric key from a password.
// HMAC is a password check tag, HMAC-SHA256(key, salt); the key itself is
// never written to disk.
type AESKeyRecord struct {
	HMAC       string `json:"hmac_array"`
	Salt       string `json:"salt"`
	Iterations uint32 `json:"iterations"`
	KDF        string `json:"kdf,omitempty"`
	Memory     uint32 `json:"memory,omitempty"`  // argon2id only, KiB
	Threads    uint8  `json:"threads,omitempty"` // argon2id only
}

// KeyPairRecord holds the encrypted private key and its public key.
type KeyPairRecord struct {
	EncryptedPrivateKey string `json:"encrypted_private_key"`
	PublicKey           string `json:"public_key"`
	IV                  string `json:"iv"`
	Cipher              string `json:"cipher,omitempty"`
}

// Keystore manages the two key files in one directory.
type Keystore struct {
	dir        string
	keyPair    string
	aesKey     string
	vault      Vault
	iterations uint32
}

// Option configures a Keystore.
type Option func(*Keystore)

// WithFileNames overrides the key pair and AES key file names.
func WithFileNames(keyPair, aesKey string) Option {
	return func(ks *Keystore) {
		if keyPair != "" {
			ks.keyPair = keyPair
		}
		if aesKey != "" {
			ks.aesKey = aesKey
		}
	}
}

// NewKeystore creates a keystore that reads/writes in dir using v for new
// key files. The directory is created if it doesn't exist.
func NewKeystore(dir string, v Vault, opts ...Option) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	ks := &Keystore{
		dir:     dir,
		keyPair: DefaultKeyPairFile,
		aesKey:  DefaultAESKeyFile,
		vault:   v,
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks, nil
}

// KeyPairPath returns the path of the key pair file.
func (ks *Keystore) KeyPairPath() string { return ks.path(ks.keyPair) }

// AESKeyPath returns the path of the AES key file.
func (ks *Keystore) AESKeyPath() string { return ks.path(ks.aesKey) }

func (ks *Keystore) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(ks.dir, name)
}

// Exists reports whether both key files are present.
func (ks *Keystore) Exists() bool {
	_, err1 := os.Stat(ks.KeyPairPath())
	_, err2 := os.Stat(ks.AESKeyPath())
	return err1 == nil && err2 == nil
}

// CreateKeyFile derives a fresh symmetric key from password and writes the
// AES key record. iterations of 0 selects the vault default. The caller owns
// the returned key and should Zero it.
func (ks *Keystore) CreateKeyFile(password []byte, iterations uint32) ([]byte, error) {
	path := ks.AESKeyPath()
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if iterations == 0 {
		iterations = ks.vault.DefaultIterations()
	}

	salt := make([]byte, ks.vault.SaltSize())
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := ks.vault.DeriveKey(password, salt, iterations)

	rec := AESKeyRecord{
		HMAC:       hex.EncodeToString(checkTag(key, salt)),
		Salt:       hex.EncodeToString(salt),
		Iterations: iterations,
	}
	if xv, ok := ks.vault.(XChaChaVault); ok {
		rec.KDF = xv.KDF()
		rec.Memory = xv.Memory
		rec.Threads = xv.Threads
	}
	if err := writeJSON(path, &rec); err != nil {
		Zero(key)
		return nil, err
	}
	log.Vault.Debug().Str("path", path).Str("kdf", ks.vault.KDF()).Uint32("iterations", iterations).Msg("created key file")
	return key, nil
}

// CreateKeyPair encrypts privHex under key and writes the key pair record.
// Returns the public key hex.
func (ks *Keystore) CreateKeyPair(key []byte, privHex string) (string, error) {
	path := ks.KeyPairPath()
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}

	priv, err := crypto.PrivateKeyFromHex(privHex)
	if err != nil {
		return "", err
	}
	defer priv.Zero()
	pub := priv.PublicKeyHex()

	plain := []byte(privHex)
	ciphertext, iv, err := ks.vault.Encrypt(key, plain)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	rec := KeyPairRecord{
		EncryptedPrivateKey: ciphertext,
		PublicKey:           pub,
		IV:                  iv,
	}
	if ks.vault.Cipher() != CipherAESCBC {
		rec.Cipher = ks.vault.Cipher()
	}
	if err := writeJSON(path, &rec); err != nil {
		return "", err
	}
	log.Vault.Debug().Str("path", path).Str("pubkey", pub).Msg("stored key pair")
	return pub, nil
}

// Create writes both key files for privHex in one step.
func (ks *Keystore) Create(password []byte, iterations uint32, privHex string) (string, error) {
	key, err := ks.CreateKeyFile(password, iterations)
	if err != nil {
		return "", err
	}
	defer Zero(key)
	return ks.CreateKeyPair(key, privHex)
}

// PublicKey returns the stored public key without decrypting anything.
func (ks *Keystore) PublicKey() (string, error) {
	var rec KeyPairRecord
	if err := readJSON(ks.KeyPairPath(), &rec); err != nil {
		return "", err
	}
	return rec.PublicKey, nil
}

// DeriveKey re-derives the symmetric key from password using the stored
// salt and iterations. Returns ErrDecrypt when the password is wrong.
func (ks *Keystore) DeriveKey(password []byte) ([]byte, Vault, error) {
	var rec AESKeyRecord
	if err := readJSON(ks.AESKeyPath(), &rec); err != nil {
		return nil, nil, err
	}
	v, err := vaultForRecord(&rec)
	if err != nil {
		return nil, nil, err
	}
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse salt: %w", err)
	}
	tag, err := hex.DecodeString(rec.HMAC)
	if err != nil {
		return nil, nil, fmt.Errorf("parse hmac_array: %w", err)
	}

	key := v.DeriveKey(password, salt, rec.Iterations)
	if !hmac.Equal(tag, checkTag(key, salt)) {
		Zero(key)
		return nil, nil, ErrDecrypt
	}
	return key, v, nil
}

// Unlock decrypts the private key with password and checks that it matches
// the stored public key.
func (ks *Keystore) Unlock(password []byte) (*crypto.PrivateKey, error) {
	key, v, err := ks.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	var rec KeyPairRecord
	if err := readJSON(ks.KeyPairPath(), &rec); err != nil {
		return nil, err
	}
	if rec.Cipher != "" && rec.Cipher != v.Cipher() {
		return nil, fmt.Errorf("%w: key pair cipher %q does not match key file kdf", ErrUnknownCipher, rec.Cipher)
	}

	plain, err := v.Decrypt(key, rec.IV, rec.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	defer Zero(plain)

	priv, err := crypto.PrivateKeyFromHex(string(plain))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if priv.PublicKeyHex() != rec.PublicKey {
		priv.Zero()
		return nil, ErrKeyMismatch
	}
	log.Vault.Debug().Str("pubkey", rec.PublicKey).Msg("unlocked key")
	return priv, nil
}

func vaultForRecord(rec *AESKeyRecord) (Vault, error) {
	switch rec.KDF {
	case "", KDFPBKDF2:
		return AESVault{}, nil
	case KDFArgon2id:
		v := NewXChaChaVault()
		if rec.Memory != 0 {
			v.Memory = rec.Memory
		}
		if rec.Threads != 0 {
			v.Threads = rec.Threads
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: kdf %q", ErrUnknownCipher, rec.KDF)
	}
}

func checkTag(key, salt []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(salt)
	return mac.Sum(nil)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoKeyFile, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
