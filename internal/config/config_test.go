package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hlwatch/hlwatch/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hyperliquid.APIURL != "https://api.hyperliquid.xyz" {
		t.Errorf("APIURL = %q", cfg.Hyperliquid.APIURL)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want default 3000", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults did not validate: %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[server]
port = 8080

[redis]
addr = "redis-file:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HLWATCH_REDIS_ADDR", "redis-env:6379")
	t.Setenv("HLWATCH_HYPERLIQUID_DEXES", "foo, bar")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	// Environment beats the file; PORT beats everything.
	if cfg.Redis.Addr != "redis-env:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want env override 9090", cfg.Server.Port)
	}
	if len(cfg.Hyperliquid.Dexes) != 2 || cfg.Hyperliquid.Dexes[0] != "foo" || cfg.Hyperliquid.Dexes[1] != "bar" {
		t.Errorf("Dexes = %v", cfg.Hyperliquid.Dexes)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "loud"
	cfg.Server.Port = 0
	cfg.Push.VAPIDPublicKey = "only-the-public-key"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	for _, want := range []string{"log_level", "port", "vapid"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestPushEnabled(t *testing.T) {
	cfg := config.Defaults()
	if cfg.PushEnabled() {
		t.Error("push enabled with no keys")
	}
	cfg.Push.VAPIDPublicKey = "pk"
	cfg.Push.VAPIDPrivateKey = "sk"
	cfg.Push.Subscriber = "mailto:ops@example.com"
	if !cfg.PushEnabled() {
		t.Error("push disabled with full key set")
	}
}
