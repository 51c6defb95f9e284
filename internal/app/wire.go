package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/moneymaker/moneymaker/internal/blob/s3"
	"github.com/moneymaker/moneymaker/internal/cache/redis"
	"github.com/moneymaker/moneymaker/internal/config"
	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
	"github.com/moneymaker/moneymaker/internal/ledger"
	"github.com/moneymaker/moneymaker/internal/notify"
	"github.com/moneymaker/moneymaker/internal/platform/gemini"
	"github.com/moneymaker/moneymaker/internal/platform/polymarket"
	"github.com/moneymaker/moneymaker/internal/service"
	"github.com/moneymaker/moneymaker/internal/store/postgres"
	"github.com/moneymaker/moneymaker/internal/workflow"
)

// Dependencies bundles every component the application modes need to
// operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	LedgerStore      domain.LedgerStore
	PositionStore    domain.PositionStore
	TransactionStore domain.TransactionStore
	WorkflowStore    domain.WorkflowStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Trading core
	Ledger       *ledger.Ledger
	Markets      *service.MarketService
	Suggester    *service.SuggesterService
	Registry     *workflow.Registry
	Orchestrator *workflow.Orchestrator

	// Archival
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsRedis returns true for modes that use the market cache, signal
// bus, or rate limiter.
func needsRedis(mode string) bool {
	switch mode {
	case "serve", "discover", "monitor":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	return mode == "archive"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.LedgerStore = postgres.NewLedgerStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.TransactionStore = postgres.NewTransactionStore(pool)
	deps.WorkflowStore = postgres.NewWorkflowStore(pool)

	// --- Redis ---
	if needsRedis(mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage ---
	if needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			deps.TransactionStore,
			cfg.S3.Prefix,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Trading core ---
	var live domain.LiveAccount
	if cfg.Trading.LiveEnabled {
		live = polymarket.NewAccountClient(
			cfg.Polymarket.ClobHost,
			cfg.Polymarket.ApiKey,
			cfg.Polymarket.ApiSecret,
			cfg.Polymarket.ApiPassphrase,
		)
	}

	deps.Ledger = ledger.New(ledger.Config{
		PaperEnabled:      cfg.Trading.PaperEnabled,
		LiveEnabled:       cfg.Trading.LiveEnabled,
		InitialBalance:    cfg.Trading.InitialBalance,
		Currency:          cfg.Trading.Currency,
		MinBalanceToTrade: cfg.Trading.MinBalanceToTrade,
		MaxPositions:      cfg.Trading.MaxPositions,
	}, deps.LedgerStore, deps.PositionStore, live, logger)

	if cfg.Trading.PaperEnabled {
		if err := deps.Ledger.Init(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ledger init: %w", err)
		}
	}

	filter := engine.NewFilterEngine(engine.FilterConfig{
		MinVolume:            cfg.Filter.MinVolume,
		MinLiquidity:         cfg.Filter.MinLiquidity,
		MaxHoursToResolution: cfg.Filter.MaxHoursToResolution,
		ExcludedCategories:   cfg.Filter.ExcludedCategories,
		MinPrice:             cfg.Filter.MinPrice,
		MaxPrice:             cfg.Filter.MaxPrice,
	})
	gate := engine.NewGate(engine.GateConfig{
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		MinBalanceToTrade:   cfg.Trading.MinBalanceToTrade,
		MaxBetAmount:        cfg.Trading.MaxBetAmount,
		MaxPositionPercent:  cfg.Trading.MaxPositionPercent,
	})
	exit := engine.NewExitEngine(engine.ExitConfig{
		StopLossPercent:   cfg.Trading.StopLossPercent,
		TakeProfitPercent: cfg.Trading.TakeProfitPercent,
	})

	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	deps.Markets = service.NewMarketService(gamma, deps.MarketCache, filter, cfg.Redis.MarketTTL.Duration, logger)

	suggestionSource := gemini.NewClient(gemini.Config{
		APIKey:              cfg.Gemini.ApiKey,
		Model:               cfg.Gemini.Model,
		BaseURL:             cfg.Gemini.BaseURL,
		MaxRetries:          cfg.Gemini.MaxRetries,
		Timeout:             cfg.Gemini.Timeout.Duration,
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
	}, logger)
	deps.Suggester = service.NewSuggesterService(suggestionSource, service.SuggesterConfig{
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		MaxSuggestions:      cfg.Trading.MaxSuggestions,
		MaxRisk:             domain.ParseRiskLevel(cfg.Trading.MaxRisk),
	}, logger)

	discovery := workflow.NewDiscoveryWorkflow(deps.Markets, deps.Suggester, deps.Ledger, gate, workflow.DiscoveryConfig{
		MinBalanceToTrade: cfg.Trading.MinBalanceToTrade,
		MaxSuggestions:    cfg.Trading.MaxSuggestions,
		MaxPositions:      cfg.Trading.MaxPositions,
	}, logger)
	monitor := workflow.NewMonitorWorkflow(deps.Ledger, deps.Markets, deps.PositionStore, exit, logger)

	deps.Registry = workflow.NewRegistry(deps.WorkflowStore, logger)
	deps.Orchestrator = workflow.NewOrchestrator(
		discovery,
		monitor,
		deps.Registry,
		deps.Ledger,
		deps.SignalBus,
		deps.Notifier,
		workflow.OrchestratorConfig{
			PaperEnabled:  cfg.Trading.PaperEnabled,
			LiveEnabled:   cfg.Trading.LiveEnabled,
			StopLossPct:   cfg.Trading.StopLossPercent,
			TakeProfitPct: cfg.Trading.TakeProfitPercent,
		},
		logger,
	)

	return deps, cleanup, nil
}
