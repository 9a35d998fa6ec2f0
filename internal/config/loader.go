package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BASECAST_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BASECAST_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "BASECAST_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "BASECAST_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "BASECAST_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "BASECAST_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "BASECAST_CHAIN_ID")
	setStr(&cfg.Chain.ContractAddress, "BASECAST_CHAIN_CONTRACT_ADDRESS")
	setStr(&cfg.Chain.TokenAddress, "BASECAST_CHAIN_TOKEN_ADDRESS")
	setDuration(&cfg.Chain.ConfirmTimeout, "BASECAST_CHAIN_CONFIRM_TIMEOUT")
	setUint64(&cfg.Chain.GasLimit, "BASECAST_CHAIN_GAS_LIMIT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BASECAST_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "BASECAST_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "BASECAST_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BASECAST_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BASECAST_DATABASE_NAME")
	setStr(&cfg.Database.User, "BASECAST_DATABASE_USER")
	setStr(&cfg.Database.Password, "BASECAST_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BASECAST_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "BASECAST_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BASECAST_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BASECAST_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BASECAST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BASECAST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BASECAST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BASECAST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BASECAST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BASECAST_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BASECAST_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BASECAST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BASECAST_S3_REGION")
	setStr(&cfg.S3.Bucket, "BASECAST_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BASECAST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BASECAST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BASECAST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BASECAST_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BASECAST_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BASECAST_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BASECAST_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BASECAST_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "BASECAST_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BASECAST_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BASECAST_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BASECAST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BASECAST_NOTIFY_EVENTS")

	// ── Reconcile ──
	setDuration(&cfg.Reconcile.SweepInterval, "BASECAST_RECONCILE_SWEEP_INTERVAL")
	setDuration(&cfg.Reconcile.Lookback, "BASECAST_RECONCILE_LOOKBACK")
	setInt(&cfg.Reconcile.BatchLimit, "BASECAST_RECONCILE_BATCH_LIMIT")

	// ── Top-level ──
	setStr(&cfg.Mode, "BASECAST_MODE")
	setStr(&cfg.LogLevel, "BASECAST_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
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
