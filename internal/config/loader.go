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
// built-in defaults, applies MONEYMAKER_* environment variable overrides, and
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

// applyEnvOverrides reads well-known MONEYMAKER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// --- Trading ---
	setBool(&cfg.Trading.PaperEnabled, "MONEYMAKER_TRADING_PAPER_ENABLED")
	setBool(&cfg.Trading.LiveEnabled, "MONEYMAKER_TRADING_LIVE_ENABLED")
	setFloat64(&cfg.Trading.InitialBalance, "MONEYMAKER_TRADING_INITIAL_BALANCE")
	setStr(&cfg.Trading.Currency, "MONEYMAKER_TRADING_CURRENCY")
	setFloat64(&cfg.Trading.MinBalanceToTrade, "MONEYMAKER_TRADING_MIN_BALANCE_TO_TRADE")
	setFloat64(&cfg.Trading.MaxBetAmount, "MONEYMAKER_TRADING_MAX_BET_AMOUNT")
	setFloat64(&cfg.Trading.MaxPositionPercent, "MONEYMAKER_TRADING_MAX_POSITION_PERCENT")
	setInt(&cfg.Trading.MaxPositions, "MONEYMAKER_TRADING_MAX_POSITIONS")
	setFloat64(&cfg.Trading.StopLossPercent, "MONEYMAKER_TRADING_STOP_LOSS_PERCENT")
	setFloat64(&cfg.Trading.TakeProfitPercent, "MONEYMAKER_TRADING_TAKE_PROFIT_PERCENT")
	setFloat64(&cfg.Trading.ConfidenceThreshold, "MONEYMAKER_TRADING_CONFIDENCE_THRESHOLD")
	setInt(&cfg.Trading.MaxSuggestions, "MONEYMAKER_TRADING_MAX_SUGGESTIONS")
	setStr(&cfg.Trading.MaxRisk, "MONEYMAKER_TRADING_MAX_RISK")
	setBool(&cfg.Trading.AutoRun, "MONEYMAKER_TRADING_AUTO_RUN")
	setDuration(&cfg.Trading.DiscoveryInterval, "MONEYMAKER_TRADING_DISCOVERY_INTERVAL")
	setDuration(&cfg.Trading.MonitorInterval, "MONEYMAKER_TRADING_MONITOR_INTERVAL")

	// --- Filter ---
	setFloat64(&cfg.Filter.MinVolume, "MONEYMAKER_FILTER_MIN_VOLUME")
	setFloat64(&cfg.Filter.MinLiquidity, "MONEYMAKER_FILTER_MIN_LIQUIDITY")
	setFloat64(&cfg.Filter.MaxHoursToResolution, "MONEYMAKER_FILTER_MAX_HOURS_TO_RESOLUTION")
	setStringSlice(&cfg.Filter.ExcludedCategories, "MONEYMAKER_FILTER_EXCLUDED_CATEGORIES")
	setFloat64(&cfg.Filter.MinPrice, "MONEYMAKER_FILTER_MIN_PRICE")
	setFloat64(&cfg.Filter.MaxPrice, "MONEYMAKER_FILTER_MAX_PRICE")

	// --- Polymarket ---
	setStr(&cfg.Polymarket.GammaHost, "MONEYMAKER_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "MONEYMAKER_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.ApiKey, "MONEYMAKER_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.ApiSecret, "MONEYMAKER_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.ApiPassphrase, "MONEYMAKER_POLYMARKET_API_PASSPHRASE")

	// --- Gemini ---
	setStr(&cfg.Gemini.ApiKey, "MONEYMAKER_GEMINI_API_KEY")
	setStr(&cfg.Gemini.Model, "MONEYMAKER_GEMINI_MODEL")
	setStr(&cfg.Gemini.BaseURL, "MONEYMAKER_GEMINI_BASE_URL")
	setInt(&cfg.Gemini.MaxRetries, "MONEYMAKER_GEMINI_MAX_RETRIES")
	setDuration(&cfg.Gemini.Timeout, "MONEYMAKER_GEMINI_TIMEOUT")

	// --- Postgres ---
	setStr(&cfg.Postgres.DSN, "MONEYMAKER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MONEYMAKER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MONEYMAKER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MONEYMAKER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MONEYMAKER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MONEYMAKER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MONEYMAKER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MONEYMAKER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MONEYMAKER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MONEYMAKER_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setStr(&cfg.Redis.Addr, "MONEYMAKER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MONEYMAKER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MONEYMAKER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MONEYMAKER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MONEYMAKER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MONEYMAKER_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.MarketTTL, "MONEYMAKER_REDIS_MARKET_TTL")

	// --- S3 ---
	setStr(&cfg.S3.Endpoint, "MONEYMAKER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MONEYMAKER_S3_REGION")
	setStr(&cfg.S3.Bucket, "MONEYMAKER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MONEYMAKER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MONEYMAKER_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "MONEYMAKER_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "MONEYMAKER_S3_RETENTION_DAYS")
	setStr(&cfg.S3.Prefix, "MONEYMAKER_S3_PREFIX")

	// --- Server ---
	setBool(&cfg.Server.Enabled, "MONEYMAKER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MONEYMAKER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MONEYMAKER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MONEYMAKER_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "MONEYMAKER_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "MONEYMAKER_SERVER_RATE_LIMIT_WINDOW")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "MONEYMAKER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MONEYMAKER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MONEYMAKER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MONEYMAKER_NOTIFY_EVENTS")

	// --- Top-level ---
	setStr(&cfg.Mode, "MONEYMAKER_MODE")
	setStr(&cfg.LogLevel, "MONEYMAKER_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
