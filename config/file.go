package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile reads a .conf file of "key = value" lines; # starts a comment.
// A missing file yields no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		values[key] = value
	}
	return values, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// ApplyFileConfig applies file values to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	case "peers.seed", "seed":
		cfg.Peers.Seed = value
	case "peers.static", "peers":
		cfg.Peers.Static = parseStringList(value)
	case "peers.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Peers.Timeout = d
	case "peers.min_agree":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Peers.MinAgree = n
	case "peers.cache_max_age":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Peers.CacheMaxAge = d

	case "wallet.keyfile":
		cfg.Wallet.KeyFile = value
	case "wallet.aeskeyfile":
		cfg.Wallet.AESKeyFile = value
	case "wallet.iterations":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Wallet.Iterations = uint32(n)
	case "wallet.cipher":
		cfg.Wallet.Cipher = strings.ToLower(value)

	case "send.fee", "fee":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Send.Fee = n

	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseDuration accepts Go durations ("10s") or plain seconds ("10").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a commented default config file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# klingnet-lite configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingnet-lite)
# datadir = ~/.klingnet-lite

# ============================================================================
# Peers
# ============================================================================

# Seed peer asked for /discover/nodes (host:port or /ip4/<ip>/tcp/<port>)
# peers.seed = 203.0.113.1:8001

# Peers always queried, comma-separated
# peers.static = 127.0.0.1:8001,127.0.0.1:8002,127.0.0.1:8003

# Per-request timeout
peers.timeout = 10s

# Minimum number of peers that must agree (0 = plurality of responders)
peers.min_agree = 0

# How long a cached peer list stays usable when the seed is down
# peers.cache_max_age = 168h

# ============================================================================
# Wallet
# ============================================================================

# Key files, relative to <datadir>/<network>/keystore
wallet.keyfile = key_pair_data.json
wallet.aeskeyfile = aes_key_data.json

# aes-256-cbc or xchacha20-poly1305
wallet.cipher = aes-256-cbc

# Key derivation cost (0 = cipher default)
# wallet.iterations = 0

# ============================================================================
# Send
# ============================================================================

send.fee = ` + strconv.FormatUint(Default(network).Send.Fee, 10) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
