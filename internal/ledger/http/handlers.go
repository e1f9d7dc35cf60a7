package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	"github.com/odyssey-erp/ledgerbridge/internal/platform/httpx"
)

// Service lists ledger reference data.
type Service interface {
	List(ctx context.Context) ([]ledger.Ledger, error)
}

// Handler serves ledger reference data.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the ledger listing endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/ledgers", h.handleList)
}

type ledgerResponse struct {
	ID              int64   `json:"id"`
	Code            string  `json:"code"`
	Description     string  `json:"description,omitempty"`
	IsLeading       bool    `json:"is_leading"`
	BaseCurrency    string  `json:"base_currency"`
	Principle       string  `json:"principle"`
	SecondCurrency  *string `json:"second_currency,omitempty"`
	ThirdCurrency   *string `json:"third_currency,omitempty"`
	IsConsolidation bool    `json:"is_consolidation"`
	Active          bool    `json:"active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list ledgers", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]ledgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, ledgerResponse{
			ID:              l.ID,
			Code:            l.Code,
			Description:     l.Description,
			IsLeading:       l.IsLeading,
			BaseCurrency:    l.BaseCurrency,
			Principle:       string(l.Principle),
			SecondCurrency:  l.SecondCurrency,
			ThirdCurrency:   l.ThirdCurrency,
			IsConsolidation: l.IsConsolidation,
			Active:          l.Active,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ledgers": out})
}
