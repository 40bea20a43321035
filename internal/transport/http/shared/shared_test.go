package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2025-06-16T23:30:00+08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("16/06/2025")
	assert.Error(t, err)
}

func TestParseYear(t *testing.T) {
	y, ok := ParseYear("", 2025)
	assert.True(t, ok)
	assert.Equal(t, 2025, y)

	y, ok = ParseYear("2024", 2025)
	assert.True(t, ok)
	assert.Equal(t, 2024, y)

	_, ok = ParseYear("24x", 2025)
	assert.False(t, ok)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=20", nil)
	p := ParsePagination(r, 20, 100)
	assert.Equal(t, Pagination{Limit: 100, Offset: 20}, p)

	r = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	assert.Equal(t, Pagination{Limit: 20, Offset: 0}, ParsePagination(r, 20, 100))
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	v.Required("employeeId", " ", "is required")
	start, _ := v.Date("startDate", "2025-06-20")
	end, _ := v.Date("endDate", "2025-06-10")
	v.DateOrder("startDate", start, "endDate", end)

	rec := httptest.NewRecorder()
	require.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Error.Code)
	require.Len(t, env.Error.Details.Fields, 3)
	assert.Equal(t, "employeeId", env.Error.Details.Fields[0].Field)
	assert.Equal(t, "endDate", env.Error.Details.Fields[1].Field)
}

func TestValidatorEnumAndRange(t *testing.T) {
	v := NewValidator()
	v.Enum("leaveType", "vl", []string{"VL", "SL"}, "is not a known leave type")
	v.Enum("leaveType", "", []string{"VL"}, "is not a known leave type")
	assert.False(t, v.HasIssues())

	v.Enum("leaveType", "XX", []string{"VL", "SL"}, "is not a known leave type")
	v.IntRange("month", 13, 1, 12)
	v.IntRange("year", 2025, 1900, 9999)

	assert.Equal(t, []ValidationIssue{
		{Field: "leaveType", Reason: "is not a known leave type"},
		{Field: "month", Reason: "must be between 1 and 12"},
	}, v.Issues())
}

func TestPaginationPage(t *testing.T) {
	page := Pagination{Limit: 25, Offset: 50}.Page(120)
	assert.Equal(t, 120, page.Total)
	assert.Equal(t, 25, page.Limit)
	assert.Equal(t, 50, page.Offset)
}
