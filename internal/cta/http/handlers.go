package ctahttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledgerbridge/internal/cta"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/httpx"
)

// RollupService rebuilds and reads CTA rollups.
type RollupService interface {
	Rebuild(ctx context.Context, fiscalPeriod string) ([]cta.Rollup, error)
	ForPeriod(ctx context.Context, fiscalPeriod string) ([]cta.Rollup, error)
}

// Handler serves the CTA rollup endpoints.
type Handler struct {
	logger  *slog.Logger
	service RollupService
}

func NewHandler(logger *slog.Logger, service RollupService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the CTA rollup endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/cta/rollups/{period}", h.handleRead)
	r.Post("/cta/rollups/{period}/rebuild", h.handleRebuild)
}

type rollupResponse struct {
	CompanyID    int64     `json:"company_id"`
	LedgerID     int64     `json:"ledger_id"`
	Principle    string    `json:"principle"`
	FiscalPeriod string    `json:"fiscal_period"`
	Opening      string    `json:"opening"`
	Movement     string    `json:"movement"`
	Closing      string    `json:"closing"`
	ComputedAt   time.Time `json:"computed_at"`
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	rollups, err := h.service.ForPeriod(r.Context(), period)
	if err != nil {
		h.handleServerError(w, "load cta rollups", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"fiscal_period": period,
		"rollups":       toResponses(rollups),
	})
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	rollups, err := h.service.Rebuild(r.Context(), period)
	if err != nil {
		h.handleServerError(w, "rebuild cta rollups", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"fiscal_period": period,
		"rollups":       toResponses(rollups),
	})
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (string, bool) {
	period := strings.TrimSpace(chi.URLParam(r, "period"))
	if _, err := time.Parse("2006-01", period); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period must use the YYYY-MM format")
		return "", false
	}
	return period, true
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func toResponses(rollups []cta.Rollup) []rollupResponse {
	out := make([]rollupResponse, 0, len(rollups))
	for _, rollup := range rollups {
		out = append(out, rollupResponse{
			CompanyID:    rollup.CompanyID,
			LedgerID:     rollup.LedgerID,
			Principle:    string(rollup.Principle),
			FiscalPeriod: rollup.FiscalPeriod,
			Opening:      rollup.Opening.StringFixed(2),
			Movement:     rollup.Movement.StringFixed(2),
			Closing:      rollup.Closing.StringFixed(2),
			ComputedAt:   rollup.ComputedAt,
		})
	}
	return out
}
