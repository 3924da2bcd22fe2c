package config

import (
	"fmt"
	"path/filepath"

	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/vault"
)

// Validate checks cfg for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	if cfg.Peers.Seed != "" {
		if _, err := peer.Parse(cfg.Peers.Seed); err != nil {
			return fmt.Errorf("peers.seed: %w", err)
		}
	}
	if _, err := peer.ParseList(cfg.Peers.Static); err != nil {
		return fmt.Errorf("peers.static: %w", err)
	}
	if cfg.Peers.Timeout <= 0 {
		return fmt.Errorf("peers.timeout must be positive")
	}
	if cfg.Peers.MinAgree < 0 {
		return fmt.Errorf("peers.min_agree must not be negative")
	}
	if cfg.Peers.CacheMaxAge < 0 {
		return fmt.Errorf("peers.cache_max_age must not be negative")
	}

	if _, err := vault.ForCipher(cfg.Wallet.Cipher); err != nil {
		return fmt.Errorf("wallet.cipher: %w", err)
	}
	files := []struct{ field, name string }{
		{"wallet.keyfile", cfg.Wallet.KeyFile},
		{"wallet.aeskeyfile", cfg.Wallet.AESKeyFile},
	}
	for _, f := range files {
		if f.name == "" || filepath.Base(f.name) != f.name {
			return fmt.Errorf("%s must be a plain file name", f.field)
		}
	}
	if cfg.Wallet.KeyFile == cfg.Wallet.AESKeyFile {
		return fmt.Errorf("wallet.keyfile and wallet.aeskeyfile must differ")
	}
	return nil
}
