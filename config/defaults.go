package config

import (
	"time"

	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/vault"
)

// DefaultCacheMaxAge bounds how stale a cached peer list may be before it
// is no longer used as a fallback.
const DefaultCacheMaxAge = 7 * 24 * time.Hour

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Peers: PeersConfig{
			// Real seeds are filled in once public peers exist.
			Seed:        "",
			Static:      []string{},
			Timeout:     peer.DefaultTimeout,
			CacheMaxAge: DefaultCacheMaxAge,
		},
		Wallet: WalletConfig{
			KeyFile:    vault.DefaultKeyPairFile,
			AESKeyFile: vault.DefaultAESKeyFile,
			Cipher:     vault.CipherAESCBC,
		},
		Send: SendConfig{
			Fee: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Send.Fee = 0
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
