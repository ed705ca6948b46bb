// Package config defines the top-level configuration for the wallet tracker
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by HLWATCH_* environment
// variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Push        PushConfig        `toml:"push"`
	Notify      NotifyConfig      `toml:"notify"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds the upstream API endpoints and the sub-ledger
// namespaces to query.
type HyperliquidConfig struct {
	APIURL string `toml:"api_url"`
	WSURL  string `toml:"ws_url"`
	// Dexes lists extra sub-ledger namespaces queried besides the default
	// perp dex. Queries against them are optional and degrade to empty.
	Dexes []string `toml:"dexes"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// PushConfig holds the Web Push VAPID key pair and the contact address the
// push services require. All three must be set together or push delivery is
// disabled.
type PushConfig struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
}

// NotifyConfig holds broadcast channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// Defaults returns a Config with sensible default values. A zero-config run
// tracks against the public Hyperliquid API with a local Redis.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			APIURL: "https://api.hyperliquid.xyz",
			WSURL:  "wss://api.hyperliquid.xyz/ws",
			Dexes:  []string{"xyz"},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Hyperliquid.APIURL == "" {
		errs = append(errs, "hyperliquid: api_url must not be empty")
	}
	if c.Hyperliquid.WSURL == "" {
		errs = append(errs, "hyperliquid: ws_url must not be empty")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	// Push — all three fields must be set together, or all empty.
	pk := c.Push.VAPIDPublicKey != ""
	sk := c.Push.VAPIDPrivateKey != ""
	sub := c.Push.Subscriber != ""
	if (pk || sk || sub) && !(pk && sk && sub) {
		errs = append(errs, "push: vapid_public_key, vapid_private_key, and subscriber must be set together")
	}

	// Telegram — token and chat ID must be set together, or both empty.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PushEnabled reports whether Web Push delivery is fully configured.
func (c *Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != "" && c.Push.Subscriber != ""
}
