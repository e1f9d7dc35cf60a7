package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledgerbridge/internal/app"
	"github.com/odyssey-erp/ledgerbridge/internal/audit"
	"github.com/odyssey-erp/ledgerbridge/internal/classify"
	"github.com/odyssey-erp/ledgerbridge/internal/cta"
	jobmetrics "github.com/odyssey-erp/ledgerbridge/internal/jobs"
	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/cache"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/db"
	"github.com/odyssey-erp/ledgerbridge/internal/posting"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
	"github.com/odyssey-erp/ledgerbridge/internal/translate"
	"github.com/odyssey-erp/ledgerbridge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	ledgerService := ledger.NewService(ledger.NewRepository(pool))

	var resolverOpts []rates.ResolverOption
	if cfg.RateFallbackType != "" {
		resolverOpts = append(resolverOpts, rates.WithFallbackType(rates.RateType(cfg.RateFallbackType)))
	}
	ratesRepo := rates.NewRepository(pool)
	resolver := rates.NewResolver(ratesRepo, logger, resolverOpts...)
	validator := rates.NewValidator(resolver, ratesRepo, cfg.FXTolerance())

	classifier := classify.NewClassifier(classify.NewRepository(pool))
	calculator := translate.NewCalculator(resolver, classifier, translate.NewHedgeRepository(pool), translate.Config{
		HedgeRedirectPct: cfg.HedgeRedirect(),
	}, logger)

	auditService := audit.NewService(audit.NewRepository(pool), ledgerService)

	var roundingAccount *int64
	if cfg.RoundingAccountID > 0 {
		id := cfg.RoundingAccountID
		roundingAccount = &id
	}
	orchestrator := posting.NewOrchestrator(posting.OrchestratorParams{
		Repo:    posting.NewRepository(pool),
		Ledgers: ledgerService,
		Rules:   rules.NewEngine(rules.NewRepository(pool)),
		Calc:    calculator,
		Audit:   auditService,
		Lock:    posting.NewRedisLock(redisClient, cfg.PostingLockTTL),
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

	metrics := jobmetrics.NewMetrics(nil)
	dispatchJob := jobs.NewPostingDispatchJob(orchestrator, logger, metrics)
	reconJob := jobs.NewReconScanJob(auditService, jobsClient, logger, metrics)
	rollupJob := jobs.NewCTARollupJob(ctaService, logger, metrics)
	fxJob := jobs.NewFXValidateJob(validator, cfg.FXCheckBase, logger, metrics)

	reconTask, err := jobs.NewReconScanTask(0)
	if err != nil {
		logger.Error("build recon task", slog.Any("error", err))
		os.Exit(1)
	}
	rollupTask, err := jobs.NewCTARollupTask("")
	if err != nil {
		logger.Error("build rollup task", slog.Any("error", err))
		os.Exit(1)
	}
	fxTask, err := jobs.NewFXValidateTask("", "")
	if err != nil {
		logger.Error("build fx task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPostingDispatch, Handler: dispatchJob.Handle},
			{Type: jobs.TaskReconScan, Handler: reconJob.Handle},
			{Type: jobs.TaskCTARollup, Handler: rollupJob.Handle},
			{Type: jobs.TaskFXValidate, Handler: fxJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: reconTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: rollupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 6 * * *", Task: fxTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
