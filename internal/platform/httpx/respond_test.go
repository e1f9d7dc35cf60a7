package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemCarriesTypedSlug(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusBadRequest, "Validation Failed", "source_doc_id must be a UUID")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var pd ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, problemTypeBase+"validation-failed", pd.Type)
	assert.Equal(t, http.StatusBadRequest, pd.Status)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/postings", strings.NewReader(`{"source_doc_id":"x","asycn":true}`))
	var target struct {
		SourceDocID string `json:"source_doc_id"`
		Async       bool   `json:"async"`
	}
	err := DecodeJSON(req, &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
