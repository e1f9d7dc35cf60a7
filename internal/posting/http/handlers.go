package postinghttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbridge/internal/platform/httpx"
	"github.com/odyssey-erp/ledgerbridge/internal/posting"
)

// Orchestrator runs one synchronous posting pass.
type Orchestrator interface {
	Post(ctx context.Context, sourceDocID uuid.UUID) (posting.Outcome, error)
}

// Dispatcher enqueues a posting run for background execution.
type Dispatcher interface {
	EnqueuePosting(ctx context.Context, sourceDocID uuid.UUID) error
}

// Handler exposes the posting trigger endpoint.
type Handler struct {
	logger       *slog.Logger
	orchestrator Orchestrator
	dispatcher   Dispatcher
	validate     *validator.Validate
}

func NewHandler(logger *slog.Logger, orchestrator Orchestrator, dispatcher Dispatcher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

type postRequest struct {
	SourceDocID string `json:"source_doc_id" validate:"required,uuid4"`
	Async       bool   `json:"async"`
}

type ledgerResultResponse struct {
	LedgerID    int64  `json:"ledger_id"`
	LedgerCode  string `json:"ledger_code"`
	Success     bool   `json:"success"`
	TargetDocID string `json:"target_doc_id,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

type outcomeResponse struct {
	SourceDocID string                 `json:"source_doc_id"`
	Status      string                 `json:"status"`
	Expected    int                    `json:"expected"`
	Posted      int                    `json:"posted"`
	Attempted   int                    `json:"attempted"`
	Results     []ledgerResultResponse `json:"results,omitempty"`
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sourceDocID, err := uuid.Parse(req.SourceDocID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source_doc_id must be a UUID")
		return
	}

	if req.Async && h.dispatcher != nil {
		if err := h.dispatcher.EnqueuePosting(r.Context(), sourceDocID); err != nil {
			h.logger.Error("enqueue posting", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{
			"source_doc_id": sourceDocID.String(),
			"state":         "queued",
		})
		return
	}

	outcome, err := h.orchestrator.Post(r.Context(), sourceDocID)
	if err != nil {
		h.respondPostError(w, sourceDocID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

func (h *Handler) respondPostError(w http.ResponseWriter, sourceDocID uuid.UUID, err error) {
	switch {
	case errors.Is(err, posting.ErrSourceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "source document not found")
	case errors.Is(err, posting.ErrConcurrentOrchestration):
		httpx.Problem(w, http.StatusConflict, "Conflict", "document is being posted by another run")
	default:
		h.logger.Error("posting run failed",
			slog.String("source_doc", sourceDocID.String()),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toOutcomeResponse(outcome posting.Outcome) outcomeResponse {
	resp := outcomeResponse{
		SourceDocID: outcome.SourceDocID.String(),
		Status:      string(outcome.Status),
		Expected:    outcome.Expected,
		Posted:      outcome.Posted,
		Attempted:   outcome.Attempted,
	}
	for _, res := range outcome.Results {
		entry := ledgerResultResponse{
			LedgerID:   res.LedgerID,
			LedgerCode: res.LedgerCode,
			Success:    res.Success,
			Error:      res.Err,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.TargetDocID != uuid.Nil {
			entry.TargetDocID = res.TargetDocID.String()
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}
