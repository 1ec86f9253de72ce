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
// built-in defaults, applies COMMENTD_* environment variable overrides, and
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

// applyEnvOverrides reads well-known COMMENTD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COMMENTD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COMMENTD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COMMENTD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COMMENTD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COMMENTD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COMMENTD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COMMENTD_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COMMENTD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COMMENTD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COMMENTD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COMMENTD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COMMENTD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COMMENTD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COMMENTD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COMMENTD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COMMENTD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "COMMENTD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COMMENTD_S3_REGION")
	setStr(&cfg.S3.Bucket, "COMMENTD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COMMENTD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COMMENTD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COMMENTD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COMMENTD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "COMMENTD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COMMENTD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "COMMENTD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "COMMENTD_SERVER_RATE_LIMIT_WINDOW")

	// ── Enricher ──
	setInt(&cfg.Enricher.Workers, "COMMENTD_ENRICHER_WORKERS")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "COMMENTD_EXPORT_ENABLED")
	setDuration(&cfg.Export.Interval, "COMMENTD_EXPORT_INTERVAL")
	setStr(&cfg.Export.Prefix, "COMMENTD_EXPORT_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COMMENTD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COMMENTD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COMMENTD_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "COMMENTD_LOG_LEVEL")
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
