package postinghttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledgerbridge/internal/audit"
	"github.com/odyssey-erp/ledgerbridge/internal/posting"
)

type stubOrchestrator struct {
	outcome posting.Outcome
	err     error
	calls   int
}

func (s *stubOrchestrator) Post(_ context.Context, sourceDocID uuid.UUID) (posting.Outcome, error) {
	s.calls++
	if s.err != nil {
		return posting.Outcome{}, s.err
	}
	out := s.outcome
	out.SourceDocID = sourceDocID
	return out, nil
}

type stubDispatcher struct {
	enqueued []uuid.UUID
}

func (s *stubDispatcher) EnqueuePosting(_ context.Context, sourceDocID uuid.UUID) error {
	s.enqueued = append(s.enqueued, sourceDocID)
	return nil
}

func newTestServer(orch Orchestrator, dispatcher Dispatcher) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(nil, orch, dispatcher).MountRoutes(r)
	return r
}

func postJSON(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/postings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlePostReturnsOutcome(t *testing.T) {
	targetDoc := uuid.New()
	orch := &stubOrchestrator{outcome: posting.Outcome{
		Status:    audit.StatusComplete,
		Expected:  2,
		Posted:    2,
		Attempted: 2,
		Results: []posting.LedgerResult{
			{LedgerID: 2, LedgerCode: "IFRS_EUR", Success: true, TargetDocID: targetDoc, Duration: 40 * time.Millisecond},
			{LedgerID: 3, LedgerCode: "TAX_USD", Success: true, TargetDocID: uuid.New()},
		},
	}}
	r := newTestServer(orch, nil)

	rec := postJSON(t, r, `{"source_doc_id":"`+uuid.NewString()+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp outcomeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(audit.StatusComplete), resp.Status)
	assert.Equal(t, 2, resp.Posted)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, targetDoc.String(), resp.Results[0].TargetDocID)
	assert.Equal(t, "IFRS_EUR", resp.Results[0].LedgerCode)
}

func TestHandlePostAsyncQueues(t *testing.T) {
	orch := &stubOrchestrator{}
	dispatcher := &stubDispatcher{}
	r := newTestServer(orch, dispatcher)
	docID := uuid.New()

	rec := postJSON(t, r, `{"source_doc_id":"`+docID.String()+`","async":true}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"queued"`)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, docID, dispatcher.enqueued[0])
	assert.Zero(t, orch.calls, "async request must not run synchronously")
}

func TestHandlePostRejectsBadRequests(t *testing.T) {
	r := newTestServer(&stubOrchestrator{}, nil)
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"source_doc_id":`},
		{"missing id", `{}`},
		{"not a uuid", `{"source_doc_id":"DEMO-2026-0001"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, r, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandlePostMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown document", posting.ErrSourceNotFound, http.StatusNotFound},
		{"concurrent run", posting.ErrConcurrentOrchestration, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestServer(&stubOrchestrator{err: tc.err}, nil)
			rec := postJSON(t, r, `{"source_doc_id":"`+uuid.NewString()+`"}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
