package audithandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/transport/http/middleware"
)

type fakeLister struct {
	filter         audit.Filter
	includeDetails bool
	limit, offset  int
}

func (f *fakeLister) Count(_ context.Context, filter audit.Filter) (int, error) {
	return 42, nil
}

func (f *fakeLister) List(_ context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error) {
	f.filter, f.includeDetails, f.limit, f.offset = filter, includeDetails, limit, offset
	return []audit.Event{{ID: "a1", Action: filter.Action}}, nil
}

func serve(t *testing.T, lister Lister, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role}))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHandler(lister).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListEventsPassesFilter(t *testing.T) {
	lister := &fakeLister{}
	rec := serve(t, lister, auth.RoleHR, "/audit?action=attendance.import&entityType=attendance_upload&includeDetails=true&limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, audit.Filter{Action: "attendance.import", EntityType: "attendance_upload"}, lister.filter)
	assert.True(t, lister.includeDetails)
	assert.Equal(t, 10, lister.limit)
	assert.Equal(t, 5, lister.offset)

	var env struct {
		Data []audit.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
}

func TestListEventsRequiresAuditPermission(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, serve(t, &fakeLister{}, auth.RoleManager, "/audit").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, &fakeLister{}, "", "/audit").Code)
}
