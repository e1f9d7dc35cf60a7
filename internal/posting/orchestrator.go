package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ledgerbridge/internal/audit"
	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
	"github.com/odyssey-erp/ledgerbridge/internal/translate"
)

// ErrUnbalancedTarget indicates a derived document whose debits and credits
// diverge beyond the configured tolerance. Nothing is persisted for that
// ledger.
var ErrUnbalancedTarget = errors.New("posting: target document does not balance")

// RuleResolver is satisfied by rules.Engine.
type RuleResolver interface {
	Resolve(ctx context.Context, sourceLedgerID, targetLedgerID, accountID int64, accountGroup string) (rules.Matched, error)
}

// Translator is satisfied by translate.Calculator.
type Translator interface {
	Translate(ctx context.Context, line translate.Line, matched rules.Matched, target ledger.Ledger, docDate time.Time) (translate.Result, error)
}

// LedgerSource supplies leading and target ledgers.
type LedgerSource interface {
	Leading(ctx context.Context) (ledger.Ledger, error)
	Targets(ctx context.Context) ([]ledger.Ledger, error)
}

// AuditPort records attempts and reports completeness.
type AuditPort interface {
	RecordAttempt(ctx context.Context, entry audit.Entry) error
	CheckCompleteness(ctx context.Context, sourceDocID uuid.UUID) (audit.Report, error)
}

// AccountDefaulter is an optional pluggable hook that may rewrite a line's
// account or dimensions before rule resolution. Environment-dependent
// defaulting stays outside the rule engine.
type AccountDefaulter interface {
	Default(ctx context.Context, line SourceLine, target ledger.Ledger) (SourceLine, error)
}

// AttemptRecorder receives per-ledger attempt observations for metrics.
type AttemptRecorder interface {
	ObserveAttempt(ledgerCode string, success bool, d time.Duration)
}

// Config tunes orchestration behaviour.
type Config struct {
	// Tolerance is the maximum accepted debit/credit residual per document.
	Tolerance decimal.Decimal
	// Parallelism bounds concurrent ledger attempts within one run.
	Parallelism int
	// RoundingAccountID, when set, absorbs sub-tolerance residuals into an
	// explicit rounding-adjustment line.
	RoundingAccountID *int64
}

// Orchestrator replicates one posted source document into every active
// non-leading ledger.
type Orchestrator struct {
	repo      Repository
	ledgers   LedgerSource
	rules     RuleResolver
	calc      Translator
	audit     AuditPort
	lock      Locker
	defaulter AccountDefaulter
	metrics   AttemptRecorder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// OrchestratorParams groups the orchestrator's dependencies.
type OrchestratorParams struct {
	Repo      Repository
	Ledgers   LedgerSource
	Rules     RuleResolver
	Calc      Translator
	Audit     AuditPort
	Lock      Locker
	Defaulter AccountDefaulter
	Metrics   AttemptRecorder
	Config    Config
	Logger    *slog.Logger
}

func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	cfg := params.Config
	if cfg.Tolerance.LessThanOrEqual(decimal.Zero) {
		cfg.Tolerance = decimal.NewFromFloat(0.01)
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	return &Orchestrator{
		repo:      params.Repo,
		ledgers:   params.Ledgers,
		rules:     params.Rules,
		calc:      params.Calc,
		audit:     params.Audit,
		lock:      params.Lock,
		defaulter: params.Defaulter,
		metrics:   params.Metrics,
		cfg:       cfg,
		logger:    params.Logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the clock for deterministic tests.
func (o *Orchestrator) WithClock(clock func() time.Time) {
	if clock != nil {
		o.now = clock
	}
}

// Post replicates the source document into every target ledger that does
// not yet hold a successful target document. Re-invoking on a COMPLETE
// document is a no-op; on PARTIAL/FAILED documents only the missing ledgers
// are retried.
func (o *Orchestrator) Post(ctx context.Context, sourceDocID uuid.UUID) (Outcome, error) {
	if o == nil || o.repo == nil || o.ledgers == nil || o.rules == nil || o.calc == nil || o.audit == nil {
		return Outcome{}, fmt.Errorf("posting: orchestrator not initialised")
	}
	if o.lock != nil {
		release, err := o.lock.Acquire(ctx, sourceDocID)
		if err != nil {
			return Outcome{}, err
		}
		defer release()
	}

	doc, err := o.repo.GetSourceDocument(ctx, sourceDocID)
	if err != nil {
		return Outcome{}, err
	}
	leading, err := o.ledgers.Leading(ctx)
	if err != nil {
		return Outcome{}, err
	}
	targets, err := o.ledgers.Targets(ctx)
	if err != nil {
		return Outcome{}, err
	}

	report, err := o.audit.CheckCompleteness(ctx, sourceDocID)
	if err != nil {
		return Outcome{}, err
	}
	posted := make(map[int64]struct{}, len(report.PostedLedgers))
	for _, id := range report.PostedLedgers {
		posted[id] = struct{}{}
	}
	var missing []ledger.Ledger
	for _, target := range targets {
		if _, ok := posted[target.ID]; !ok {
			missing = append(missing, target)
		}
	}
	if len(missing) == 0 {
		o.log().Info("document already complete, skipping",
			slog.String("source_doc", sourceDocID.String()))
		return Outcome{
			SourceDocID: sourceDocID,
			Status:      audit.StatusComplete,
			Expected:    len(targets),
			Posted:      len(report.PostedLedgers),
		}, nil
	}

	results := make([]LedgerResult, len(missing))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.cfg.Parallelism)
	for i, target := range missing {
		group.Go(func() error {
			results[i] = o.attemptLedger(groupCtx, doc, leading, target)
			return nil
		})
	}
	// Attempt errors are captured per ledger; the group never fails.
	_ = group.Wait()

	outcome := Outcome{
		SourceDocID: sourceDocID,
		Expected:    len(targets),
		Posted:      len(report.PostedLedgers),
		Attempted:   len(missing),
		Results:     results,
	}
	for _, res := range results {
		if res.Success {
			outcome.Posted++
		}
	}
	switch {
	case outcome.Posted >= outcome.Expected:
		outcome.Status = audit.StatusComplete
	case outcome.Posted > 0:
		outcome.Status = audit.StatusPartial
	default:
		outcome.Status = audit.StatusFailed
	}
	o.log().Info("orchestration finished",
		slog.String("source_doc", sourceDocID.String()),
		slog.String("status", string(outcome.Status)),
		slog.Int("attempted", outcome.Attempted),
		slog.Int("posted", outcome.Posted))
	return outcome, nil
}

// attemptLedger builds, validates and persists one target document. Errors
// are caught here, recorded in the audit log and never abort the other
// ledgers.
func (o *Orchestrator) attemptLedger(ctx context.Context, doc SourceDocument, leading, target ledger.Ledger) LedgerResult {
	started := o.now()
	result := LedgerResult{LedgerID: target.ID, LedgerCode: target.Code}

	targetDoc, totals, err := o.buildTarget(ctx, doc, leading, target)
	if err == nil {
		var targetID uuid.UUID
		targetID, err = o.repo.PersistTarget(ctx, targetDoc, audit.Entry{
			SourceDocID: doc.ID,
			LedgerID:    target.ID,
			Outcome:     audit.OutcomeSuccess,
			TotalDebit:  totals.debit,
			TotalCredit: totals.credit,
			Meta: map[string]any{
				"ledger_code":   target.Code,
				"currency":      target.BaseCurrency,
				"lines":         len(targetDoc.Lines),
				"lines_dropped": totals.dropped,
			},
			StartedAt:  started,
			FinishedAt: o.now(),
		})
		if err == nil {
			result.Success = true
			result.TargetDocID = targetID
		}
	}
	result.Duration = o.now().Sub(started)

	if err != nil {
		result.Err = err.Error()
		o.log().Warn("ledger attempt failed",
			slog.String("source_doc", doc.ID.String()),
			slog.String("ledger", target.Code),
			slog.Any("error", err))
		if recErr := o.audit.RecordAttempt(ctx, audit.Entry{
			SourceDocID: doc.ID,
			LedgerID:    target.ID,
			Outcome:     audit.OutcomeFailed,
			ErrorDetail: err.Error(),
			Meta: map[string]any{
				"ledger_code": target.Code,
			},
			StartedAt:  started,
			FinishedAt: o.now(),
		}); recErr != nil {
			o.log().Error("record failed attempt", slog.Any("error", recErr))
		}
	}
	if o.metrics != nil {
		o.metrics.ObserveAttempt(target.Code, result.Success, result.Duration)
	}
	return result
}

type attemptTotals struct {
	debit   decimal.Decimal
	credit  decimal.Decimal
	dropped int
}

func (o *Orchestrator) buildTarget(ctx context.Context, doc SourceDocument, leading, target ledger.Ledger) (TargetDocument, attemptTotals, error) {
	targetDoc := TargetDocument{
		ID:          uuid.New(),
		SourceDocID: doc.ID,
		LedgerID:    target.ID,
		CompanyID:   doc.CompanyID,
		PostingDate: doc.PostingDate,
		Currency:    target.BaseCurrency,
	}
	totals := attemptTotals{debit: decimal.Zero, credit: decimal.Zero}

	for _, line := range doc.Lines {
		if o.defaulter != nil {
			defaulted, err := o.defaulter.Default(ctx, line, target)
			if err != nil {
				return TargetDocument{}, totals, fmt.Errorf("posting: account defaulting line %d: %w", line.ID, err)
			}
			line = defaulted
		}
		matched, err := o.rules.Resolve(ctx, leading.ID, target.ID, line.AccountID, line.AccountGroup)
		if err != nil {
			return TargetDocument{}, totals, err
		}
		res, err := o.calc.Translate(ctx, translate.Line{
			AccountID:      line.AccountID,
			AccountGroup:   line.AccountGroup,
			CompanyID:      doc.CompanyID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Currency:       lineCurrency(line, doc),
			HistoricalRate: line.HistoricalRate,
			HistoricalDate: line.HistoricalDate,
		}, matched, target, doc.PostingDate)
		if err != nil {
			return TargetDocument{}, totals, err
		}
		if res.Dropped {
			totals.dropped++
			continue
		}
		targetDoc.Lines = append(targetDoc.Lines, TargetLine{
			TargetDocID:     targetDoc.ID,
			SourceLineID:    line.ID,
			AccountID:       res.AccountID,
			Debit:           res.Debit,
			Credit:          res.Credit,
			DimBusinessUnit: line.DimBusinessUnit,
			DimCostCenter:   line.DimCostCenter,
			DimLocation:     line.DimLocation,
			DimProductLine:  line.DimProductLine,
			RateValue:       res.Rate.Value,
			RateDate:        res.Rate.RateDate,
			RateType:        string(res.Rate.Type),
			RuleID:          res.RuleID,
			RuleKind:        string(res.RuleKind),
			PnLComponent:    res.Split.PnL,
			OCIComponent:    res.Split.OCI,
			CTAComponent:    res.Split.CTA,
		})
		totals.debit = totals.debit.Add(res.Debit)
		totals.credit = totals.credit.Add(res.Credit)
	}

	residual := totals.debit.Sub(totals.credit)
	if residual.Abs().GreaterThan(o.cfg.Tolerance) {
		return TargetDocument{}, totals, fmt.Errorf("%w: ledger %s residual %s exceeds tolerance %s",
			ErrUnbalancedTarget, target.Code, residual.String(), o.cfg.Tolerance.String())
	}
	if !residual.IsZero() && o.cfg.RoundingAccountID != nil {
		rounding := TargetLine{
			TargetDocID: targetDoc.ID,
			AccountID:   *o.cfg.RoundingAccountID,
			RuleKind:    string(rules.KindAdjust),
		}
		if residual.IsPositive() {
			rounding.Credit = residual
			totals.credit = totals.credit.Add(residual)
		} else {
			rounding.Debit = residual.Neg()
			totals.debit = totals.debit.Add(residual.Neg())
		}
		targetDoc.Lines = append(targetDoc.Lines, rounding)
	}
	return targetDoc, totals, nil
}

func lineCurrency(line SourceLine, doc SourceDocument) string {
	if line.Currency != "" {
		return line.Currency
	}
	return doc.Currency
}

func (o *Orchestrator) log() *slog.Logger {
	if o != nil && o.logger != nil {
		return o.logger.With(slog.String("component", "posting_orchestrator"))
	}
	return slog.Default().With(slog.String("component", "posting_orchestrator"))
}
