package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HLWATCH_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults
// plus environment carry a zero-config run. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HLWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.APIURL, "HLWATCH_HYPERLIQUID_API_URL")
	setStr(&cfg.Hyperliquid.WSURL, "HLWATCH_HYPERLIQUID_WS_URL")
	setStringSlice(&cfg.Hyperliquid.Dexes, "HLWATCH_HYPERLIQUID_DEXES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HLWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HLWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HLWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HLWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HLWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HLWATCH_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "HLWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HLWATCH_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.Port, "PORT") // platform-provided port wins last

	// ── Push ──
	setStr(&cfg.Push.VAPIDPublicKey, "HLWATCH_PUSH_VAPID_PUBLIC_KEY")
	setStr(&cfg.Push.VAPIDPrivateKey, "HLWATCH_PUSH_VAPID_PRIVATE_KEY")
	setStr(&cfg.Push.Subscriber, "HLWATCH_PUSH_SUBSCRIBER")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HLWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HLWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HLWATCH_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "HLWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
