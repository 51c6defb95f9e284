// Package config defines the top-level configuration for the moneymaker
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MONEYMAKER_* environment variables.
type Config struct {
	Trading    TradingConfig    `toml:"trading"`
	Filter     FilterConfig     `toml:"filter"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// TradingConfig holds position sizing, exit thresholds, and mode toggles.
type TradingConfig struct {
	PaperEnabled        bool    `toml:"paper_enabled"`
	LiveEnabled         bool    `toml:"live_enabled"`
	InitialBalance      float64 `toml:"initial_balance"`
	Currency            string  `toml:"currency"`
	MinBalanceToTrade   float64 `toml:"min_balance_to_trade"`
	MaxBetAmount        float64 `toml:"max_bet_amount"`
	MaxPositionPercent  float64 `toml:"max_position_percent"`
	MaxPositions        int     `toml:"max_positions"`
	StopLossPercent     float64 `toml:"stop_loss_percent"`
	TakeProfitPercent   float64 `toml:"take_profit_percent"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	MaxSuggestions      int     `toml:"max_suggestions"`
	MaxRisk             string  `toml:"max_risk"`

	// AutoRun drives the discovery/monitor tickers in serve mode. The
	// pipelines themselves never schedule their own runs.
	AutoRun           bool     `toml:"auto_run"`
	DiscoveryInterval duration `toml:"discovery_interval"`
	MonitorInterval   duration `toml:"monitor_interval"`
}

// FilterConfig holds the market eligibility rules.
type FilterConfig struct {
	MinVolume            float64  `toml:"min_volume"`
	MinLiquidity         float64  `toml:"min_liquidity"`
	MaxHoursToResolution float64  `toml:"max_hours_to_resolution"`
	ExcludedCategories   []string `toml:"excluded_categories"`
	MinPrice             float64  `toml:"min_price"`
	MaxPrice             float64  `toml:"max_price"`
}

// PolymarketConfig holds the market data and live account API endpoints.
type PolymarketConfig struct {
	GammaHost     string `toml:"gamma_host"`
	ClobHost      string `toml:"clob_host"`
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// GeminiConfig holds the suggestion model parameters.
type GeminiConfig struct {
	ApiKey     string   `toml:"api_key"`
	Model      string   `toml:"model"`
	BaseURL    string   `toml:"base_url"`
	MaxRetries int      `toml:"max_retries"`
	Timeout    duration `toml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	MarketTTL  duration `toml:"market_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the
// transaction archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			PaperEnabled:        true,
			LiveEnabled:         false,
			InitialBalance:      1000.0,
			Currency:            "USDC",
			MinBalanceToTrade:   10.0,
			MaxBetAmount:        50.0,
			MaxPositionPercent:  0.10,
			MaxPositions:        10,
			StopLossPercent:     -15.0,
			TakeProfitPercent:   30.0,
			ConfidenceThreshold: 0.7,
			MaxSuggestions:      5,
			MaxRisk:             "high",
			AutoRun:             false,
			DiscoveryInterval:   duration{10 * time.Minute},
			MonitorInterval:     duration{2 * time.Minute},
		},
		Filter: FilterConfig{
			MinVolume:            1000.0,
			MinLiquidity:         500.0,
			MaxHoursToResolution: 1.0,
			ExcludedCategories:   []string{"sports", "entertainment"},
			MinPrice:             0.05,
			MaxPrice:             0.95,
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.0-flash",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			MaxRetries: 3,
			Timeout:    duration{60 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "moneymaker",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			MarketTTL:  duration{5 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "moneymaker-data",
			ForcePathStyle: true,
			RetentionDays:  90,
			Prefix:         "archive/transactions",
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       120,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"order_placed", "position_closed", "workflow_failed"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":    true,
	"discover": true,
	"monitor":  true,
	"archive":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validRisks enumerates the accepted values for TradingConfig.MaxRisk.
var validRisks = map[string]bool{
	"very_low":  true,
	"low":       true,
	"medium":    true,
	"high":      true,
	"very_high": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, discover, monitor, archive)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if c.Trading.InitialBalance < 0 {
		errs = append(errs, "trading: initial_balance must be >= 0")
	}
	if c.Trading.MinBalanceToTrade < 0 {
		errs = append(errs, "trading: min_balance_to_trade must be >= 0")
	}
	if c.Trading.MaxBetAmount <= 0 {
		errs = append(errs, "trading: max_bet_amount must be > 0")
	}
	if c.Trading.MaxPositionPercent <= 0 || c.Trading.MaxPositionPercent > 1 {
		errs = append(errs, fmt.Sprintf("trading: max_position_percent must be in (0,1], got %g", c.Trading.MaxPositionPercent))
	}
	if c.Trading.MaxPositions < 1 {
		errs = append(errs, "trading: max_positions must be >= 1")
	}
	if c.Trading.StopLossPercent >= 0 {
		errs = append(errs, fmt.Sprintf("trading: stop_loss_percent must be negative, got %g", c.Trading.StopLossPercent))
	}
	if c.Trading.TakeProfitPercent <= 0 {
		errs = append(errs, fmt.Sprintf("trading: take_profit_percent must be positive, got %g", c.Trading.TakeProfitPercent))
	}
	if c.Trading.ConfidenceThreshold < 0 || c.Trading.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("trading: confidence_threshold must be in [0,1], got %g", c.Trading.ConfidenceThreshold))
	}
	if c.Trading.MaxSuggestions < 1 {
		errs = append(errs, "trading: max_suggestions must be >= 1")
	}
	if !validRisks[c.Trading.MaxRisk] {
		errs = append(errs, fmt.Sprintf("trading: unknown max_risk %q (valid: very_low, low, medium, high, very_high)", c.Trading.MaxRisk))
	}
	if c.Trading.AutoRun {
		if c.Trading.DiscoveryInterval.Duration <= 0 {
			errs = append(errs, "trading: discovery_interval must be > 0 when auto_run is enabled")
		}
		if c.Trading.MonitorInterval.Duration <= 0 {
			errs = append(errs, "trading: monitor_interval must be > 0 when auto_run is enabled")
		}
	}

	// Filter
	if c.Filter.MinVolume < 0 {
		errs = append(errs, "filter: min_volume must be >= 0")
	}
	if c.Filter.MinLiquidity < 0 {
		errs = append(errs, "filter: min_liquidity must be >= 0")
	}
	if c.Filter.MaxHoursToResolution <= 0 {
		errs = append(errs, "filter: max_hours_to_resolution must be > 0")
	}
	if c.Filter.MinPrice < 0 || c.Filter.MinPrice > 1 {
		errs = append(errs, fmt.Sprintf("filter: min_price must be in [0,1], got %g", c.Filter.MinPrice))
	}
	if c.Filter.MaxPrice < 0 || c.Filter.MaxPrice > 1 {
		errs = append(errs, fmt.Sprintf("filter: max_price must be in [0,1], got %g", c.Filter.MaxPrice))
	}
	if c.Filter.MinPrice >= c.Filter.MaxPrice {
		errs = append(errs, "filter: min_price must be less than max_price")
	}

	// Polymarket
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Trading.LiveEnabled {
		if c.Polymarket.ClobHost == "" {
			errs = append(errs, "polymarket: clob_host must not be empty when live trading is enabled")
		}
		if c.Polymarket.ApiKey == "" || c.Polymarket.ApiSecret == "" || c.Polymarket.ApiPassphrase == "" {
			errs = append(errs, "polymarket: api_key, api_secret, and api_passphrase are required when live trading is enabled")
		}
	}

	// Gemini. The suggestion model is only needed when discovery can run.
	if c.Mode == "serve" || c.Mode == "discover" {
		if c.Gemini.ApiKey == "" {
			errs = append(errs, "gemini: api_key is required for mode "+c.Mode)
		}
	}
	if c.Gemini.Model == "" {
		errs = append(errs, "gemini: model must not be empty")
	}
	if c.Gemini.MaxRetries < 0 {
		errs = append(errs, "gemini: max_retries must be >= 0")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.MarketTTL.Duration <= 0 {
		errs = append(errs, "redis: market_ttl must be > 0")
	}

	// S3. Only required when the archiver can run.
	if c.Mode == "archive" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty for archive mode")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for archive mode")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateLimitWindow.Duration <= 0 {
			errs = append(errs, "server: rate_limit_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
