package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soumik404/basecast/internal/server"
	"github.com/soumik404/basecast/internal/server/handler"
	"github.com/soumik404/basecast/internal/server/ws"
	"github.com/soumik404/basecast/internal/service"
)

// ServeMode runs the HTTP + WebSocket API server. It blocks until the context
// is cancelled, then shuts the server down gracefully.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	settlements := service.NewSettlementService(
		deps.Chain,
		deps.Chain,
		deps.PredictionStore,
		deps.BetStore,
		deps.ProposalStore,
		deps.PredictionCache,
		deps.LeaderboardCache,
		deps.LockManager,
		deps.SignalBus,
		deps.AuditStore,
		a.logger,
	)
	if deps.Archiver != nil {
		settlements = settlements.WithArchiver(deps.Archiver)
	}
	if deps.Notifier != nil {
		settlements = settlements.WithAlerter(deps.Notifier)
	}

	reconciler := service.NewReconcileService(
		deps.Chain,
		deps.PredictionStore,
		deps.ProposalStore,
		deps.PredictionCache,
		deps.AuditStore,
		a.logger,
	)
	if deps.Notifier != nil {
		reconciler = reconciler.WithAlerter(deps.Notifier)
	}

	predictions := service.NewPredictionService(
		deps.PredictionStore,
		deps.BetStore,
		deps.ProposalStore,
		deps.PredictionCache,
		a.logger,
	)
	leaderboard := service.NewLeaderboardService(deps.LeaderboardStore, deps.LeaderboardCache, a.logger)
	verifiers := service.NewVerifierService(deps.Chain, deps.Chain, deps.VerifierStore, deps.AuditStore, a.logger)

	pingers := map[string]handler.Pinger{
		"postgres": deps.PingPostgres,
		"redis":    deps.PingRedis,
		"chain":    deps.Chain.Ping,
	}
	if deps.PingS3 != nil {
		pingers["s3"] = deps.PingS3
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(pingers, a.logger),
		Predictions: handler.NewPredictionHandler(predictions, settlements, reconciler, a.logger),
		Bets:        handler.NewBetHandler(predictions, settlements, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(leaderboard, a.logger),
		Verifiers:   handler.NewVerifierHandler(verifiers, a.logger),
		Ops:         handler.NewOpsHandler(deps.AuditStore, deps.PredictionStore, deps.Chain, a.logger),
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.logger.InfoContext(ctx, "serve mode started", slog.Int("port", a.cfg.Server.Port))
	return g.Wait()
}

// ReconcileMode repairs a single prediction's projection from chain state and
// exits.
func (a *App) ReconcileMode(ctx context.Context, deps *Dependencies) error {
	if a.PredictionID <= 0 {
		return errors.New("app: reconcile mode requires a prediction id")
	}

	reconciler := service.NewReconcileService(
		deps.Chain,
		deps.PredictionStore,
		deps.ProposalStore,
		deps.PredictionCache,
		deps.AuditStore,
		a.logger,
	)
	if deps.Notifier != nil {
		reconciler = reconciler.WithAlerter(deps.Notifier)
	}

	p, err := reconciler.Reconcile(ctx, a.PredictionID)
	if err != nil {
		return fmt.Errorf("app: reconcile prediction %d: %w", a.PredictionID, err)
	}

	a.logger.InfoContext(ctx, "prediction reconciled",
		slog.Int64("prediction_id", p.PredictionID),
		slog.String("status", string(p.Status)),
	)
	return nil
}

// SweepMode periodically reconciles every prediction the projection has
// touched inside the lookback window. It blocks until the context is
// cancelled.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	reconciler := service.NewReconcileService(
		deps.Chain,
		deps.PredictionStore,
		deps.ProposalStore,
		deps.PredictionCache,
		deps.AuditStore,
		a.logger,
	)
	if deps.Notifier != nil {
		reconciler = reconciler.WithAlerter(deps.Notifier)
	}

	interval := a.cfg.Reconcile.SweepInterval.Duration
	lookback := a.cfg.Reconcile.Lookback.Duration
	limit := a.cfg.Reconcile.BatchLimit

	a.logger.InfoContext(ctx, "sweep mode started",
		slog.Duration("interval", interval),
		slog.Duration("lookback", lookback),
		slog.Int("batch_limit", limit),
	)

	sweep := func() {
		n, err := reconciler.Sweep(ctx, lookback, limit)
		if err != nil {
			a.logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
			return
		}
		a.logger.InfoContext(ctx, "sweep complete", slog.Int("reconciled", n))
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}
