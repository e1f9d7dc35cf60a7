package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
)

// LedgerSource supplies the expected set of target ledgers.
type LedgerSource interface {
	Targets(ctx context.Context) ([]ledger.Ledger, error)
}

// Service records posting attempts and derives completeness. It performs no
// mutation of documents itself; retries are driven by its reports.
type Service struct {
	repo    Repository
	ledgers LedgerSource
	now     func() time.Time
}

func NewService(repo Repository, ledgers LedgerSource) *Service {
	return &Service{repo: repo, ledgers: ledgers, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RecordAttempt appends one audit entry.
func (s *Service) RecordAttempt(ctx context.Context, entry Entry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("audit: service not initialised")
	}
	if entry.SourceDocID == uuid.Nil {
		return fmt.Errorf("audit: source document id required")
	}
	if entry.LedgerID <= 0 {
		return fmt.Errorf("audit: ledger id required")
	}
	if entry.Outcome == "" {
		return fmt.Errorf("audit: outcome required")
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = s.now()
	}
	return s.repo.InsertEntry(ctx, entry)
}

// CheckCompleteness compares expected non-leading ledgers against ledgers
// with a successful target document, flagging both gaps and duplicates.
func (s *Service) CheckCompleteness(ctx context.Context, sourceDocID uuid.UUID) (Report, error) {
	if s == nil || s.repo == nil || s.ledgers == nil {
		return Report{}, fmt.Errorf("audit: service not initialised")
	}
	targets, err := s.ledgers.Targets(ctx)
	if err != nil {
		return Report{}, err
	}
	counts, err := s.repo.PostedLedgerCounts(ctx, sourceDocID)
	if err != nil {
		return Report{}, err
	}
	entries, err := s.repo.EntriesForDoc(ctx, sourceDocID)
	if err != nil {
		return Report{}, err
	}

	report := Report{SourceDocID: sourceDocID, Attempts: len(entries)}
	expected := make(map[int64]struct{}, len(targets))
	for _, t := range targets {
		expected[t.ID] = struct{}{}
		report.ExpectedLedgers = append(report.ExpectedLedgers, t.ID)
	}
	for ledgerID, n := range counts {
		if _, ok := expected[ledgerID]; ok {
			report.PostedLedgers = append(report.PostedLedgers, ledgerID)
		} else {
			// A target document for a ledger that is no longer expected.
			report.ExtraLedgers = append(report.ExtraLedgers, ledgerID)
		}
		if n > 1 {
			report.ExtraLedgers = append(report.ExtraLedgers, ledgerID)
		}
	}
	for _, t := range targets {
		if _, ok := counts[t.ID]; !ok {
			report.MissingLedgers = append(report.MissingLedgers, t.ID)
		}
	}
	sortIDs(report.PostedLedgers)
	sortIDs(report.MissingLedgers)
	sortIDs(report.ExtraLedgers)

	report.Status = deriveStatus(len(report.ExpectedLedgers), len(report.PostedLedgers), report.Attempts)
	return report, nil
}

// Trail returns the audit entries for one document, oldest first.
func (s *Service) Trail(ctx context.Context, sourceDocID uuid.UUID) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("audit: service not initialised")
	}
	return s.repo.EntriesForDoc(ctx, sourceDocID)
}

// ListRetryable lists documents whose completeness still shows gaps. The
// reconciliation job uses this to queue gap-filling retries.
func (s *Service) ListRetryable(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("audit: service not initialised")
	}
	return s.repo.DocsWithGaps(ctx, limit)
}

func deriveStatus(expected, posted, attempts int) DocumentStatus {
	switch {
	// With no target ledgers nothing is owed; the orchestrator reports the
	// same for an empty missing set.
	case posted >= expected:
		return StatusComplete
	case posted > 0:
		return StatusPartial
	case attempts > 0:
		return StatusFailed
	default:
		return StatusPending
	}
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
