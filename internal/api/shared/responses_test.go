package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

	RespondWithJSON(rec, req, http.StatusOK, map[string]string{"status": "PENDING"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"PENDING"}`, rec.Body.String())
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req = req.WithContext(SetTraceID(req.Context()))

	RespondWithError(rec, req, http.StatusNotFound, "Task with id 42 not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Task with id 42 not found", resp.Error)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, GetTraceID(req.Context()), resp.TraceID)
}

func TestRespondWithErrorWithoutTraceID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

	RespondWithError(rec, req, http.StatusBadRequest, "Invalid task ID")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.TraceID)
	assert.NotContains(t, rec.Body.String(), "trace_id")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tasks",
		strings.NewReader(`{"name":"Nightly Report"}`))

	var p payload
	require.NoError(t, DecodeJSON(req, &p))
	assert.Equal(t, "Nightly Report", p.Name)

	req = httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{broken"))
	assert.Error(t, DecodeJSON(req, &p))
}

func TestValidateRequestPrefersValidateMethod(t *testing.T) {
	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.Error(t, ValidateRequest(selfValidating{ok: false}))
}

func TestValidateRequestFallsBackToTags(t *testing.T) {
	type tagged struct {
		Name string `validate:"required"`
	}

	assert.Error(t, ValidateRequest(tagged{}))
	assert.NoError(t, ValidateRequest(tagged{Name: "Nightly Report"}))
}

type selfValidating struct {
	ok bool
}

func (s selfValidating) Validate() error {
	if s.ok {
		return nil
	}
	return assert.AnError
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := SetTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	// A fresh context carries no trace ID.
	assert.Empty(t, GetTraceID(context.Background()))

	// Setting again produces a new ID.
	assert.NotEqual(t, id, GetTraceID(SetTraceID(ctx)))
}
