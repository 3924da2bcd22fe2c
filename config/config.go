// Package config handles klingnet-lite configuration.
//
// Values are layered: built-in defaults, then the key = value config file,
// then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet. Each network keeps its own
// keys, history and peer cache.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds the client configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	Peers  PeersConfig
	Wallet WalletConfig
	Send   SendConfig
	Log    LogConfig
}

// PeersConfig selects the peers the client votes over.
type PeersConfig struct {
	Seed        string        `conf:"peers.seed"`   // host:port or multiaddr queried for /discover/nodes
	Static      []string      `conf:"peers.static"` // used as-is, before discovered peers
	Timeout     time.Duration `conf:"peers.timeout"`
	MinAgree    int           `conf:"peers.min_agree"` // 0 = plain plurality
	CacheMaxAge time.Duration `conf:"peers.cache_max_age"`
}

// WalletConfig locates and protects the key files.
type WalletConfig struct {
	KeyFile    string `conf:"wallet.keyfile"`
	AESKeyFile string `conf:"wallet.aeskeyfile"`
	Iterations uint32 `conf:"wallet.iterations"` // 0 = cipher default
	Cipher     string `conf:"wallet.cipher"`
}

// SendConfig holds payment defaults.
type SendConfig struct {
	Fee uint64 `conf:"send.fee"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-lite
//	macOS:   ~/Library/Application Support/KlingnetLite
//	Windows: %APPDATA%\KlingnetLite
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-lite"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetLite")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "KlingnetLite")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetLite")
	default:
		return filepath.Join(home, ".klingnet-lite")
	}
}

// NetworkDir returns the per-network data directory.
func (c *Config) NetworkDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the directory holding the key files.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDir(), "keystore")
}

// DBDir returns the wallet database directory (send history, peer cache).
func (c *Config) DBDir() string {
	return filepath.Join(c.NetworkDir(), "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-lite.conf")
}
