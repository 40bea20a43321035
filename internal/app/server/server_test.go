package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/core"
	"workforce/internal/platform/clock"
	"workforce/internal/platform/config"
	"workforce/internal/platform/metrics"
	"workforce/internal/storage/memory"
)

const testSecret = "server-test-secret"

type memoryAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memoryAudit) Record(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, audit.Event{ActorID: e.ActorID, Action: e.Action, EntityType: e.EntityType, EntityID: e.EntityID})
	return nil
}

func (m *memoryAudit) Count(_ context.Context, _ audit.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), nil
}

func (m *memoryAudit) List(_ context.Context, _ audit.Filter, _ bool, _, _ int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Event(nil), m.events...), nil
}

type testApp struct {
	handler http.Handler
	notes   *memory.NotificationStore
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:            testSecret,
		Environment:          "test",
		MaxBodyBytes:         1 << 20,
		MaxUploadBytes:       4 << 20,
		RateLimitPerMinute:   1000,
		LeaveAccrualInterval: time.Hour,
		LeaveAccrualWorkers:  2,
		LeaveRateManagerial:  decimal.RequireFromString("1.5"),
		LeaveRateStandard:    decimal.RequireFromString("1.25"),
		MetricsEnabled:       true,
	}
}

func newTestApp(t *testing.T, ready func(context.Context) error) *testApp {
	t.Helper()
	dir := memory.NewDirectory()
	hired := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	dir.AddEmployee(core.Employee{ID: "emp-1", FirstName: "Ana", LastName: "Reyes", Role: "agent", HiredDate: &hired, Active: true})
	dir.AddEmployee(core.Employee{ID: "mgr-1", FirstName: "Mia", LastName: "Santos", Role: "manager", HiredDate: &hired, Active: true})

	notes := memory.NewNotificationStore()
	stores := Stores{
		Directory:     dir,
		Leave:         memory.NewLeaveStore(),
		Attendance:    memory.NewAttendanceStore(),
		Notifications: notes,
		Audit:         &memoryAudit{},
		Idempotency:   memory.NewIdempotencyStore(),
	}
	clk := clock.NewFixed(time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC))
	svc := NewServices(testConfig(), stores, clk, time.UTC, nil, metrics.New())
	svc.Ready = ready
	return &testApp{handler: NewRouter(testConfig(), svc), notes: notes}
}

func bearer(t *testing.T, userID, employeeID, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{
		EmployeeID:       employeeID,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (a *testApp) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestProbesAndHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.call(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = app.call(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.call(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workforce_http_requests_total")
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	app := newTestApp(t, func(context.Context) error { return errors.New("db down") })
	rec := app.call(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.call(t, http.MethodGet, "/api/v1/leave/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.call(t, http.MethodGet, "/api/v1/leave/requests", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaveWorkflowNotifiesAndCounts(t *testing.T) {
	app := newTestApp(t, nil)
	agent := bearer(t, "u-1", "emp-1", "agent")
	manager := bearer(t, "u-2", "mgr-1", "manager")

	rec := app.call(t, http.MethodGet, "/api/v1/leave/credits/emp-1?year=2025", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.call(t, http.MethodPost, "/api/v1/leave/requests", agent, map[string]string{
		"leaveType": "VL", "startDate": "2025-07-01", "endDate": "2025-07-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = app.call(t, http.MethodPost, "/api/v1/leave/requests/"+created.Data.ID+"/approve", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list, err := app.notes.ListNotifications(context.Background(), "emp-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	rec = app.call(t, http.MethodGet, "/api/v1/notifications", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	body := app.call(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, body, `workforce_leave_request_events_total{event="approved"} 1`)
	assert.Contains(t, body, `workforce_leave_request_events_total{event="submitted"} 1`)
}

func TestAccrualRunIsAuditedAndCounted(t *testing.T) {
	app := newTestApp(t, nil)
	hr := bearer(t, "u-hr", "", "hr")

	rec := app.call(t, http.MethodPost, "/api/v1/leave/accrual/run", hr, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.call(t, http.MethodGet, "/api/v1/audit?action=leave.accrual.run", hr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), audit.ActionAccrualRun))

	body := app.call(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, body, `workforce_leave_accrual_employees_total{result="created"} 2`)
}
