// Package wallet builds, signs and broadcasts payments through a peer quorum.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const (
	// MnemonicEntropyBits gives 24-word phrases.
	MnemonicEntropyBits = 256
	// SeedSize is the BIP-39 seed length in bytes.
	SeedSize = 64
)

// ErrInvalidMnemonic is returned for phrases with unknown words or a bad checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateMnemonic returns a fresh 24-word BIP-39 phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return phrase, nil
}

// NormalizeMnemonic lowercases the phrase and collapses whitespace.
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidateMnemonic reports whether phrase is a valid BIP-39 mnemonic.
func ValidateMnemonic(phrase string) bool {
	return bip39.IsMnemonicValid(NormalizeMnemonic(phrase))
}

// SeedFromMnemonic derives the 64-byte BIP-39 seed of phrase.
func SeedFromMnemonic(phrase, passphrase string) ([]byte, error) {
	phrase = NormalizeMnemonic(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
