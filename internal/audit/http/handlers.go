package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbridge/internal/audit"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/httpx"
)

const (
	defaultGapLimit = 50
	maxGapLimit     = 500
)

// TrailService exposes the audit log read side.
type TrailService interface {
	CheckCompleteness(ctx context.Context, sourceDocID uuid.UUID) (audit.Report, error)
	Trail(ctx context.Context, sourceDocID uuid.UUID) ([]audit.Entry, error)
	ListRetryable(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Handler serves document status, audit trail and gap listings.
type Handler struct {
	logger  *slog.Logger
	service TrailService
}

func NewHandler(logger *slog.Logger, service TrailService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type statusResponse struct {
	SourceDocID     string  `json:"source_doc_id"`
	Status          string  `json:"status"`
	ExpectedLedgers []int64 `json:"expected_ledgers"`
	PostedLedgers   []int64 `json:"posted_ledgers"`
	MissingLedgers  []int64 `json:"missing_ledgers"`
	ExtraLedgers    []int64 `json:"extra_ledgers,omitempty"`
	Attempts        int     `json:"attempts"`
}

type trailEntryResponse struct {
	LedgerID    int64          `json:"ledger_id"`
	Outcome     string         `json:"outcome"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	TotalDebit  string         `json:"total_debit"`
	TotalCredit string         `json:"total_credit"`
	Meta        map[string]any `json:"meta,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	sourceDocID, ok := h.docID(w, r)
	if !ok {
		return
	}
	report, err := h.service.CheckCompleteness(r.Context(), sourceDocID)
	if err != nil {
		h.handleServerError(w, "check completeness", err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusResponse{
		SourceDocID:     report.SourceDocID.String(),
		Status:          string(report.Status),
		ExpectedLedgers: report.ExpectedLedgers,
		PostedLedgers:   report.PostedLedgers,
		MissingLedgers:  report.MissingLedgers,
		ExtraLedgers:    report.ExtraLedgers,
		Attempts:        report.Attempts,
	})
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	sourceDocID, ok := h.docID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Trail(r.Context(), sourceDocID)
	if err != nil {
		h.handleServerError(w, "load audit trail", err)
		return
	}
	out := make([]trailEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, trailEntryResponse{
			LedgerID:    e.LedgerID,
			Outcome:     string(e.Outcome),
			ErrorDetail: e.ErrorDetail,
			TotalDebit:  e.TotalDebit.StringFixed(2),
			TotalCredit: e.TotalCredit.StringFixed(2),
			Meta:        e.Meta,
			StartedAt:   e.StartedAt,
			FinishedAt:  e.FinishedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"source_doc_id": sourceDocID.String(),
		"entries":       out,
	})
}

func (h *Handler) handleGaps(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	limit := defaultGapLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		if parsed > maxGapLimit {
			parsed = maxGapLimit
		}
		limit = parsed
	}
	docs, err := h.service.ListRetryable(r.Context(), limit)
	if err != nil {
		h.handleServerError(w, "list documents with gaps", err)
		return
	}
	ids := make([]string, 0, len(docs))
	for _, id := range docs {
		ids = append(ids, id.String())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"source_doc_ids": ids})
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "sourceDocID")
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "sourceDocID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
