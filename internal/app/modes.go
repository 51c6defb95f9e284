package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/server"
	"github.com/moneymaker/moneymaker/internal/server/handler"
	"github.com/moneymaker/moneymaker/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// ServeMode runs the long-lived service: the HTTP API, the WebSocket
// hub, and, when auto_run is enabled, the discovery and monitor tickers.
// It blocks until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.SignalBus, string(a.primaryMode()), a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		srv := server.NewServer(server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		}, a.buildHandlers(deps), hub, deps.RateLimiter, a.logger)

		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Trading.AutoRun {
		a.startAutoRun(ctx, g, deps)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// DiscoverMode executes one discovery pass per enabled trading mode and
// exits.
func (a *App) DiscoverMode(ctx context.Context, deps *Dependencies) error {
	var firstErr error
	for _, mode := range a.enabledModes() {
		result, err := deps.Orchestrator.RunDiscovery(ctx, mode)
		if err != nil {
			a.logger.ErrorContext(ctx, "discovery run failed",
				slog.String("mode", string(mode)),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logRunResult(ctx, a.logger, result)
	}
	return firstErr
}

// MonitorMode executes one monitor pass per enabled trading mode and
// exits.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	var firstErr error
	for _, mode := range a.enabledModes() {
		result, err := deps.Orchestrator.RunMonitor(ctx, mode)
		if err != nil {
			a.logger.ErrorContext(ctx, "monitor run failed",
				slog.String("mode", string(mode)),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logRunResult(ctx, a.logger, result)
	}
	return firstErr
}

// ArchiveMode archives transactions older than the configured retention
// window to object storage and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	cutoff := time.Now().AddDate(0, 0, -a.cfg.S3.RetentionDays)

	result, err := deps.Archiver.ArchiveTransactions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}

	archives, err := deps.Archiver.ListArchives(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "list archives failed", slog.String("error", err.Error()))
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.String("path", result.Path),
		slog.Int64("archived", result.Archived),
		slog.Int64("deleted", result.Deleted),
		slog.Int("total_archives", len(archives)),
	)
	return nil
}

// startAutoRun adds the discovery and monitor ticker goroutines to the
// errgroup. Each tick runs the pipeline once per enabled trading mode;
// run failures are logged, never fatal.
func (a *App) startAutoRun(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	discoveryInterval := a.cfg.Trading.DiscoveryInterval.Duration
	monitorInterval := a.cfg.Trading.MonitorInterval.Duration

	a.logger.Info("auto-run enabled",
		slog.Duration("discovery_interval", discoveryInterval),
		slog.Duration("monitor_interval", monitorInterval),
	)

	g.Go(func() error {
		ticker := time.NewTicker(discoveryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				for _, mode := range a.enabledModes() {
					result, err := deps.Orchestrator.RunDiscovery(ctx, mode)
					if err != nil {
						a.logger.ErrorContext(ctx, "scheduled discovery failed",
							slog.String("mode", string(mode)),
							slog.String("error", err.Error()),
						)
						continue
					}
					logRunResult(ctx, a.logger, result)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				for _, mode := range a.enabledModes() {
					result, err := deps.Orchestrator.RunMonitor(ctx, mode)
					if err != nil {
						a.logger.ErrorContext(ctx, "scheduled monitor failed",
							slog.String("mode", string(mode)),
							slog.String("error", err.Error()),
						)
						continue
					}
					logRunResult(ctx, a.logger, result)
				}
			}
		}
	})
}

// buildHandlers constructs every REST handler from the wired
// dependencies.
func (a *App) buildHandlers(deps *Dependencies) server.Handlers {
	return server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Status:       handler.NewStatusHandler(deps.Orchestrator),
		Markets:      handler.NewMarketHandler(deps.Markets, a.logger),
		Wallet:       handler.NewWalletHandler(deps.Ledger, a.logger),
		Transactions: handler.NewTransactionHandler(deps.Ledger, deps.TransactionStore, a.logger),
		Positions:    handler.NewPositionHandler(deps.Ledger, a.cfg.Trading.StopLossPercent, a.cfg.Trading.TakeProfitPercent, a.logger),
		Workflows:    handler.NewWorkflowHandler(deps.Orchestrator, a.logger),
	}
}

// enabledModes returns the trading modes that are switched on in the
// configuration, paper first.
func (a *App) enabledModes() []domain.Mode {
	var modes []domain.Mode
	if a.cfg.Trading.PaperEnabled {
		modes = append(modes, domain.ModePaper)
	}
	if a.cfg.Trading.LiveEnabled {
		modes = append(modes, domain.ModeLive)
	}
	return modes
}

// primaryMode is the trading mode reported to WebSocket clients on
// connect.
func (a *App) primaryMode() domain.Mode {
	if a.cfg.Trading.PaperEnabled {
		return domain.ModePaper
	}
	if a.cfg.Trading.LiveEnabled {
		return domain.ModeLive
	}
	return domain.ModePaper
}

// logRunResult emits one structured log line summarising a pipeline
// run.
func logRunResult(ctx context.Context, logger *slog.Logger, r domain.RunResult) {
	logger.InfoContext(ctx, "pipeline run finished",
		slog.String("workflow", r.WorkflowID),
		slog.String("mode", string(r.Mode)),
		slog.Bool("success", r.Success),
		slog.Int("markets_analyzed", r.MarketsAnalyzed),
		slog.Int("suggestions", r.Suggestions),
		slog.Int("orders_placed", r.OrdersPlaced),
		slog.Int("positions_checked", r.PositionsChecked),
		slog.Int("sells_triggered", r.SellsTriggered),
		slog.Int("errors", len(r.Errors)),
	)
}
