package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledgerbridge/internal/app"
	"github.com/odyssey-erp/ledgerbridge/internal/audit"
	audithttp "github.com/odyssey-erp/ledgerbridge/internal/audit/http"
	"github.com/odyssey-erp/ledgerbridge/internal/classify"
	"github.com/odyssey-erp/ledgerbridge/internal/cta"
	ctahttp "github.com/odyssey-erp/ledgerbridge/internal/cta/http"
	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	ledgerhttp "github.com/odyssey-erp/ledgerbridge/internal/ledger/http"
	"github.com/odyssey-erp/ledgerbridge/internal/observability"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/cache"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/db"
	"github.com/odyssey-erp/ledgerbridge/internal/posting"
	postinghttp "github.com/odyssey-erp/ledgerbridge/internal/posting/http"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
	"github.com/odyssey-erp/ledgerbridge/internal/translate"
	"github.com/odyssey-erp/ledgerbridge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo)

	var resolverOpts []rates.ResolverOption
	if cfg.RateFallbackType != "" {
		resolverOpts = append(resolverOpts, rates.WithFallbackType(rates.RateType(cfg.RateFallbackType)))
	}
	ratesRepo := rates.NewRepository(pool)
	resolver := rates.NewResolver(ratesRepo, logger, resolverOpts...)

	classifier := classify.NewClassifier(classify.NewRepository(pool))
	hedges := translate.NewHedgeRepository(pool)
	calculator := translate.NewCalculator(resolver, classifier, hedges, translate.Config{
		HedgeRedirectPct: cfg.HedgeRedirect(),
	}, logger)

	rulesEngine := rules.NewEngine(rules.NewRepository(pool))

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, ledgerService)

	metrics := observability.NewMetrics()

	var roundingAccount *int64
	if cfg.RoundingAccountID > 0 {
		id := cfg.RoundingAccountID
		roundingAccount = &id
	}
	orchestrator := posting.NewOrchestrator(posting.OrchestratorParams{
		Repo:    posting.NewRepository(pool),
		Ledgers: ledgerService,
		Rules:   rulesEngine,
		Calc:    calculator,
		Audit:   auditService,
		Lock:    posting.NewRedisLock(redisClient, cfg.PostingLockTTL),
		Metrics: metrics,
		Config: posting.Config{
			Tolerance:         cfg.Tolerance(),
			Parallelism:       cfg.PostingParallelism,
			RoundingAccountID: roundingAccount,
		},
		Logger: logger,
	})

	ctaService := cta.NewService(cta.NewRepository(pool), ledgerService, logger)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		LedgerHandler:  ledgerhttp.NewHandler(logger, ledgerService),
		PostingHandler: postinghttp.NewHandler(logger, orchestrator, jobsClient),
		AuditHandler:   audithttp.NewHandler(logger, auditService),
		CTAHandler:     ctahttp.NewHandler(logger, ctaService),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
