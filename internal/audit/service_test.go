package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
)

type stubRepo struct {
	entries  []Entry
	counts   map[int64]int
	gaps     []uuid.UUID
	inserted []Entry
}

func (s *stubRepo) InsertEntry(_ context.Context, entry Entry) error {
	s.inserted = append(s.inserted, entry)
	return nil
}

func (s *stubRepo) EntriesForDoc(context.Context, uuid.UUID) ([]Entry, error) {
	return s.entries, nil
}

func (s *stubRepo) PostedLedgerCounts(context.Context, uuid.UUID) (map[int64]int, error) {
	return s.counts, nil
}

func (s *stubRepo) DocsWithGaps(context.Context, int) ([]uuid.UUID, error) {
	return s.gaps, nil
}

type fixedLedgers struct {
	targets []ledger.Ledger
}

func (f *fixedLedgers) Targets(context.Context) ([]ledger.Ledger, error) {
	return f.targets, nil
}

func twoTargets() *fixedLedgers {
	return &fixedLedgers{targets: []ledger.Ledger{
		{ID: 2, Code: "IFRS_EUR"},
		{ID: 3, Code: "TAX_USD"},
	}}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		expected int
		posted   int
		attempts int
		want     DocumentStatus
	}{
		{"no activity", 2, 0, 0, StatusPending},
		{"no target ledgers", 0, 0, 0, StatusComplete},
		{"all posted", 2, 2, 2, StatusComplete},
		{"some posted", 2, 1, 2, StatusPartial},
		{"attempted, none posted", 2, 0, 2, StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.expected, tc.posted, tc.attempts); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCheckCompletenessReportsGaps(t *testing.T) {
	repo := &stubRepo{
		counts: map[int64]int{2: 1},
		entries: []Entry{
			{LedgerID: 2, Outcome: OutcomeSuccess},
			{LedgerID: 3, Outcome: OutcomeFailed},
		},
	}
	svc := NewService(repo, twoTargets())

	report, err := svc.CheckCompleteness(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusPartial {
		t.Fatalf("expected PARTIAL, got %s", report.Status)
	}
	if len(report.PostedLedgers) != 1 || report.PostedLedgers[0] != 2 {
		t.Fatalf("expected posted [2], got %v", report.PostedLedgers)
	}
	if len(report.MissingLedgers) != 1 || report.MissingLedgers[0] != 3 {
		t.Fatalf("expected missing [3], got %v", report.MissingLedgers)
	}
	if report.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", report.Attempts)
	}
}

func TestCheckCompletenessFlagsDuplicates(t *testing.T) {
	repo := &stubRepo{
		counts:  map[int64]int{2: 2, 3: 1},
		entries: []Entry{{LedgerID: 2, Outcome: OutcomeSuccess}},
	}
	svc := NewService(repo, twoTargets())

	report, err := svc.CheckCompleteness(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusComplete {
		t.Fatalf("expected COMPLETE, got %s", report.Status)
	}
	if len(report.ExtraLedgers) != 1 || report.ExtraLedgers[0] != 2 {
		t.Fatalf("expected duplicate extra [2], got %v", report.ExtraLedgers)
	}
}

func TestCheckCompletenessFlagsUnexpectedLedger(t *testing.T) {
	repo := &stubRepo{counts: map[int64]int{2: 1, 3: 1, 7: 1}}
	svc := NewService(repo, twoTargets())

	report, err := svc.CheckCompleteness(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.ExtraLedgers) != 1 || report.ExtraLedgers[0] != 7 {
		t.Fatalf("expected extra [7], got %v", report.ExtraLedgers)
	}
}

func TestRecordAttemptValidatesEntry(t *testing.T) {
	svc := NewService(&stubRepo{}, twoTargets())
	cases := []struct {
		name  string
		entry Entry
	}{
		{"missing doc id", Entry{LedgerID: 2, Outcome: OutcomeSuccess}},
		{"missing ledger", Entry{SourceDocID: uuid.New(), Outcome: OutcomeSuccess}},
		{"missing outcome", Entry{SourceDocID: uuid.New(), LedgerID: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.RecordAttempt(context.Background(), tc.entry); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRecordAttemptDefaultsFinishedAt(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, twoTargets())
	fixed := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	err := svc.RecordAttempt(context.Background(), Entry{
		SourceDocID: uuid.New(),
		LedgerID:    2,
		Outcome:     OutcomeFailed,
		ErrorDetail: "rate missing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one inserted entry, got %d", len(repo.inserted))
	}
	if !repo.inserted[0].FinishedAt.Equal(fixed) {
		t.Fatalf("expected FinishedAt %s, got %s", fixed, repo.inserted[0].FinishedAt)
	}
}

func TestListRetryablePassesThrough(t *testing.T) {
	docID := uuid.New()
	svc := NewService(&stubRepo{gaps: []uuid.UUID{docID}}, twoTargets())

	docs, err := svc.ListRetryable(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0] != docID {
		t.Fatalf("unexpected retryable docs: %v", docs)
	}
}
