package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusUnprocessableEntity, "insufficient_credits", "not enough credits", map[string]string{"shortfall": "1.5"}, "req-1")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
		Error     struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, "insufficient_credits", env.Error.Code)
	assert.Equal(t, "1.5", env.Error.Details["shortfall"])
}

func TestSuccessAndCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "x"}, "req-2")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"x"},"requestId":"req-2"}`, rec.Body.String())
}

func TestSuccessPage(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessPage(rec, []string{"a", "b"}, Page{Total: 7, Limit: 2, Offset: 4}, "req-3")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-Total-Count"))
	assert.JSONEq(t, `{"success":true,"data":["a","b"],"meta":{"total":7,"limit":2,"offset":4},"requestId":"req-3"}`, rec.Body.String())
}

func TestFailOmitsDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, http.StatusNotFound, "not_found", "missing", "")
	assert.JSONEq(t, `{"success":false,"error":{"code":"not_found","message":"missing"}}`, rec.Body.String())
}
