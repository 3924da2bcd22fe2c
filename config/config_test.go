package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConf(t, `
# comment
network = testnet
peers.static = "127.0.0.1:8001, 127.0.0.1:8002"
peers.timeout = 3
send.fee = '7'
`)
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	want := map[string]string{
		"network":       "testnet",
		"peers.static":  "127.0.0.1:8001, 127.0.0.1:8002",
		"peers.timeout": "3",
		"send.fee":      "7",
	}
	if len(values) != len(want) {
		t.Fatalf("LoadFile() = %v", values)
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("%s = %q, want %q", k, values[k], v)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "none.conf"))
	if err != nil || len(values) != 0 {
		t.Errorf("LoadFile(missing) = %v, %v; want empty", values, err)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	if _, err := LoadFile(writeConf(t, "just a line\n")); err == nil {
		t.Error("line without = should fail")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultMainnet()
	err := ApplyFileConfig(cfg, map[string]string{
		"peers.seed":          "/ip4/10.0.0.1/tcp/8001",
		"peers.static":        "a:1,b:2",
		"peers.timeout":       "2500ms",
		"peers.min_agree":     "2",
		"peers.cache_max_age": "60",
		"wallet.cipher":       "XChaCha20-Poly1305",
		"wallet.iterations":   "4",
		"send.fee":            "3",
		"log.json":            "yes",
		"unknown.key":         "ignored",
	})
	if err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if cfg.Peers.Seed != "/ip4/10.0.0.1/tcp/8001" || len(cfg.Peers.Static) != 2 {
		t.Errorf("peers = %+v", cfg.Peers)
	}
	if cfg.Peers.Timeout != 2500*time.Millisecond || cfg.Peers.CacheMaxAge != time.Minute {
		t.Errorf("durations = %v, %v", cfg.Peers.Timeout, cfg.Peers.CacheMaxAge)
	}
	if cfg.Peers.MinAgree != 2 || cfg.Wallet.Iterations != 4 || cfg.Send.Fee != 3 {
		t.Errorf("numbers = %d %d %d", cfg.Peers.MinAgree, cfg.Wallet.Iterations, cfg.Send.Fee)
	}
	if cfg.Wallet.Cipher != "xchacha20-poly1305" || !cfg.Log.JSON {
		t.Errorf("cipher = %q json = %v", cfg.Wallet.Cipher, cfg.Log.JSON)
	}
}

func TestApplyFileConfig_BadValues(t *testing.T) {
	for _, kv := range [][2]string{
		{"peers.timeout", "soon"},
		{"peers.min_agree", "many"},
		{"wallet.iterations", "-1"},
		{"send.fee", "1.5"},
	} {
		if err := ApplyFileConfig(DefaultMainnet(), map[string]string{kv[0]: kv[1]}); err == nil {
			t.Errorf("%s = %q should fail", kv[0], kv[1])
		}
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--testnet", "--peers", "a:1,b:2", "--min-agree=0", "send", "--to", "x"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	if f.Network != "testnet" || f.Peers != "a:1,b:2" {
		t.Errorf("flags = %+v", f)
	}
	if !f.SetMinAgree || f.SetLogJSON {
		t.Errorf("set tracking = min-agree %v log-json %v", f.SetMinAgree, f.SetLogJSON)
	}
	if strings.Join(f.Args, " ") != "send --to x" {
		t.Errorf("Args = %v, want the subcommand and its flags", f.Args)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if _, err := ParseFlags([]string{"--bogus"}, io.Discard); err == nil {
		t.Error("unknown flag should fail")
	}
	f, err := ParseFlags([]string{"--help"}, io.Discard)
	if err != nil || !f.Help {
		t.Errorf("--help = %+v, %v", f, err)
	}
}

func TestApplyFlags_OverridesFile(t *testing.T) {
	cfg := DefaultMainnet()
	ApplyFileConfig(cfg, map[string]string{"peers.min_agree": "3", "peers.static": "a:1", "log.json": "true"})

	f, err := ParseFlags([]string{"--min-agree", "0", "--peers", "b:2", "--timeout", "1s", "--iterations", "9"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	ApplyFlags(cfg, f)

	if cfg.Peers.MinAgree != 0 {
		t.Errorf("explicit --min-agree 0 should override the file, got %d", cfg.Peers.MinAgree)
	}
	if len(cfg.Peers.Static) != 1 || cfg.Peers.Static[0] != "b:2" {
		t.Errorf("static = %v", cfg.Peers.Static)
	}
	if cfg.Peers.Timeout != time.Second || cfg.Wallet.Iterations != 9 {
		t.Errorf("timeout = %v iterations = %d", cfg.Peers.Timeout, cfg.Wallet.Iterations)
	}
	if !cfg.Log.JSON {
		t.Error("unset --log-json should keep the file value")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"testnet", func(c *Config) { c.Network = Testnet }, true},
		{"bad network", func(c *Config) { c.Network = "devnet" }, false},
		{"empty datadir", func(c *Config) { c.DataDir = "" }, false},
		{"multiaddr seed", func(c *Config) { c.Peers.Seed = "/ip4/127.0.0.1/tcp/8001" }, true},
		{"bad seed", func(c *Config) { c.Peers.Seed = "nohost" }, false},
		{"bad static", func(c *Config) { c.Peers.Static = []string{"127.0.0.1:8001", "x:99999"} }, false},
		{"zero timeout", func(c *Config) { c.Peers.Timeout = 0 }, false},
		{"negative min agree", func(c *Config) { c.Peers.MinAgree = -1 }, false},
		{"xchacha", func(c *Config) { c.Wallet.Cipher = "xchacha20-poly1305" }, true},
		{"unknown cipher", func(c *Config) { c.Wallet.Cipher = "rot13" }, false},
		{"key file with dir", func(c *Config) { c.Wallet.KeyFile = "../key.json" }, false},
		{"same key files", func(c *Config) { c.Wallet.AESKeyFile = c.Wallet.KeyFile }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			cfg.DataDir = t.TempDir()
			tt.modify(cfg)
			if err := Validate(cfg); (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) should fail")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, flags, err := Load([]string{"--datadir", dir, "--testnet", "balance"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Network != Testnet || cfg.DataDir != dir {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(flags.Args) != 1 || flags.Args[0] != "balance" {
		t.Errorf("Args = %v", flags.Args)
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Errorf("default config not written: %v", err)
	}
	if info, err := os.Stat(cfg.KeystoreDir()); err != nil || !info.IsDir() {
		t.Errorf("keystore dir not created: %v", err)
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	for _, network := range []NetworkType{Mainnet, Testnet} {
		path := filepath.Join(t.TempDir(), "klingnet-lite.conf")
		if err := WriteDefaultConfig(path, network); err != nil {
			t.Fatalf("WriteDefaultConfig() error: %v", err)
		}
		values, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		cfg := Default(network)
		cfg.DataDir = t.TempDir()
		if err := ApplyFileConfig(cfg, values); err != nil {
			t.Fatalf("ApplyFileConfig() error: %v", err)
		}
		if err := Validate(cfg); err != nil {
			t.Errorf("%s default file does not validate: %v", network, err)
		}
		if cfg.Send.Fee != Default(network).Send.Fee {
			t.Errorf("%s fee = %d", network, cfg.Send.Fee)
		}
	}
}
