package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Flags holds the parsed global command-line flags.
type Flags struct {
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Peers
	Seed     string
	Peers    string
	Timeout  time.Duration
	MinAgree int

	// Wallet
	Cipher     string
	Iterations uint

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the subcommand and its arguments.
	Args []string

	// Explicitly-set flags whose zero value is meaningful.
	SetMinAgree   bool
	SetIterations bool
	SetLogJSON    bool
}

// ParseFlags parses the global flags in args. Parsing stops at the first
// non-flag argument, which starts the subcommand.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("klingnet-lite", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolFunc("testnet", "Shorthand for --network=testnet", func(string) error {
		f.Network = string(Testnet)
		return nil
	})
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	fs.StringVar(&f.Seed, "seed", "", "Seed peer for discovery (host:port or multiaddr)")
	fs.StringVar(&f.Peers, "peers", "", "Static peers, comma-separated")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Per-peer request timeout")
	fs.IntVar(&f.MinAgree, "min-agree", 0, "Minimum number of agreeing peers")

	fs.StringVar(&f.Cipher, "cipher", "", "Key file cipher (aes-256-cbc or xchacha20-poly1305)")
	fs.UintVar(&f.Iterations, "iterations", 0, "Key derivation cost")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetMinAgree = isFlagSet(fs, "min-agree")
	f.SetIterations = isFlagSet(fs, "iterations")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to cfg.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if f.Seed != "" {
		cfg.Peers.Seed = f.Seed
	}
	if f.Peers != "" {
		cfg.Peers.Static = parseStringList(f.Peers)
	}
	if f.Timeout != 0 {
		cfg.Peers.Timeout = f.Timeout
	}
	if f.SetMinAgree {
		cfg.Peers.MinAgree = f.MinAgree
	}

	if f.Cipher != "" {
		cfg.Wallet.Cipher = strings.ToLower(f.Cipher)
	}
	if f.SetIterations {
		cfg.Wallet.Iterations = uint32(f.Iterations)
	}

	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Usage is the global part of the CLI help text.
const Usage = `Global flags:
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network=testnet
  --datadir <path>    Data directory (default: ~/.klingnet-lite)
  --config, -c <path> Config file (default: <datadir>/klingnet-lite.conf)
  --seed <peer>       Seed peer for discovery (host:port or /ip4/<ip>/tcp/<port>)
  --peers <list>      Static peers, comma-separated
  --timeout <dur>     Per-peer request timeout (default: 10s)
  --min-agree <n>     Minimum number of agreeing peers (default: plurality)
  --cipher <name>     Key file cipher: aes-256-cbc (default) or xchacha20-poly1305
  --iterations <n>    Key derivation cost (default: cipher default)
  --log-level <lvl>   debug, info, warn, error (default: info)
  --log-file <path>   Also write JSON logs to a file
  --log-json          Output logs as JSON
`

// Load builds the configuration with the following precedence:
//  1. Default values
//  2. Config file (created with defaults on first run)
//  3. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}
	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.KeystoreDir(), 0700); err != nil {
		return nil, nil, fmt.Errorf("creating keystore dir: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory and a default config file if
// they do not exist yet. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
