package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/core"
	"workforce/internal/domain/leave"
	"workforce/internal/platform/jobs"
	"workforce/internal/requestctx"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

const submitEndpoint = "leave.submit"

type Handler struct {
	Service     *leave.Service
	Jobs        *jobs.Service
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *leave.Service, jobsSvc *jobs.Service, auditSvc audit.Recorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Jobs: jobsSvc, Audit: auditSvc, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/requests", h.handleSubmitRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests/{requestID}/history", h.handleRequestHistory)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/requests/{requestID}/deny", h.handleDenyRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/credits/{employeeID}", h.handleCredits)
		r.With(middleware.RequirePermission(auth.PermLeaveAccrual)).Post("/credits/{employeeID}/backfill", h.handleBackfill)
		r.With(middleware.RequirePermission(auth.PermLeaveAccrual)).Post("/accrual/run", h.handleRunAccrual)
	})
}

type submitPayload struct {
	EmployeeID string `json:"employeeId"`
	LeaveType  string `json:"leaveType"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Reason     string `json:"reason"`
}

type reviewPayload struct {
	Notes string `json:"notes"`
}

type accrualPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	var payload submitPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if strings.TrimSpace(payload.EmployeeID) == "" {
		payload.EmployeeID = user.EmployeeID
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.Required("leaveType", payload.LeaveType, "is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return
	}
	if !canActFor(user, payload.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot file leave for another employee", reqID)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(raw)
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, submitEndpoint, idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", reqID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Created(w, stored, reqID)
			return
		}
	}

	created, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID: payload.EmployeeID,
		LeaveType:  payload.LeaveType,
		StartDate:  start,
		EndDate:    end,
		Reason:     payload.Reason,
		ActorID:    actorID(user),
	})
	if err != nil {
		failLeave(w, err, "leave_request_create_failed", "failed to create leave request", reqID)
		return
	}

	if idemKey != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(created)
		if err != nil {
			slog.Warn("idempotency response marshal failed", "err", err)
		} else if err := h.Idempotency.Save(r.Context(), user.UserID, submitEndpoint, idemKey, requestHash, encoded); err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "employeeId", Reason: "is required"}})
		return
	}
	if !canActFor(user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's leave", reqID)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	result, err := h.Service.ListForEmployee(r.Context(), employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list leave requests", reqID)
		return
	}
	requests := result.Requests
	if requests == nil {
		requests = []leave.LeaveRequest{}
	}
	api.SuccessPage(w, requests, page.Page(result.Total), reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestHistory(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	events, err := h.Service.History(r.Context(), req.ID)
	if err != nil {
		failLeave(w, err, "leave_history_failed", "failed to load leave request history", reqID)
		return
	}
	if events == nil {
		events = []leave.RequestEvent{}
	}
	api.Success(w, events, reqID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.Approve, "leave_approve_failed", "failed to approve leave request")
}

func (h *Handler) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.Deny, "leave_deny_failed", "failed to deny leave request")
}

type reviewFunc func(ctx context.Context, requestID, reviewerID, notes string) (leave.LeaveRequest, error)

func (h *Handler) review(w http.ResponseWriter, r *http.Request, fn reviewFunc, code, message string) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload reviewPayload
	if !decodeOptional(w, r, &payload, reqID) {
		return
	}

	requestID := chi.URLParam(r, "requestID")
	current, err := h.Service.Get(r.Context(), requestID)
	if err != nil {
		failLeave(w, err, code, message, reqID)
		return
	}
	if user.EmployeeID != "" && current.EmployeeID == user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "self_review", "cannot review your own leave request", reqID)
		return
	}

	updated, err := fn(r.Context(), requestID, actorID(user), payload.Notes)
	if err != nil {
		failLeave(w, err, code, message, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	current, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.Cancel(r.Context(), current.ID, actorID(user))
	if err != nil {
		failLeave(w, err, "leave_cancel_failed", "failed to cancel leave request", reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleCredits(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := chi.URLParam(r, "employeeID")
	if !canActFor(user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's credits", reqID)
		return
	}
	year, ok := shared.ParseYear(r.URL.Query().Get("year"), h.Service.Engine.Today().Year())
	if !ok {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "year", Reason: "must be a four digit year"}})
		return
	}

	emp, err := h.Service.Employees.GetEmployee(r.Context(), employeeID)
	if err != nil {
		failLeave(w, err, "leave_credits_failed", "failed to load leave credits", reqID)
		return
	}
	summary, err := h.Service.Engine.Summary(r.Context(), emp, year)
	if err != nil {
		failLeave(w, err, "leave_credits_failed", "failed to load leave credits", reqID)
		return
	}
	if summary.Entries == nil {
		summary.Entries = []leave.LedgerEntry{}
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Service.Employees.GetEmployee(r.Context(), employeeID)
	if err != nil {
		failLeave(w, err, "leave_backfill_failed", "failed to backfill leave credits", reqID)
		return
	}

	details, err := h.Jobs.RunNow(r.Context(), jobs.JobLeaveBackfill, func(ctx context.Context) (any, error) {
		created, err := h.Service.Engine.BackfillCredits(ctx, emp)
		return map[string]any{"employeeId": emp.ID, "created": created}, err
	})
	if err != nil {
		failLeave(w, err, "leave_backfill_failed", "failed to backfill leave credits", reqID)
		return
	}

	h.record(r, audit.Entry{
		ActorID:    user.UserID,
		Action:     audit.ActionCreditsBackfill,
		EntityType: "employee",
		EntityID:   emp.ID,
		After:      details,
	})
	api.Success(w, details, reqID)
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload accrualPayload
	if !decodeOptional(w, r, &payload, reqID) {
		return
	}

	var (
		summary leave.AccrualSummary
		err     error
	)
	switch {
	case payload.Year == 0 && payload.Month == 0:
		summary, err = h.Jobs.AccrueNow(r.Context())
	default:
		v := shared.NewValidator()
		v.IntRange("year", payload.Year, 1900, 9999)
		v.IntRange("month", payload.Month, 1, 12)
		if !v.HasIssues() && !completedMonth(h.Service.Engine.Now(), payload.Year, time.Month(payload.Month)) {
			v.Add("month", "must be a completed month")
		}
		if v.Reject(w, reqID) {
			return
		}
		summary, err = h.Jobs.AccrueMonth(r.Context(), payload.Year, time.Month(payload.Month))
	}
	if err != nil {
		slog.Warn("leave accrual run failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "leave_accrual_failed", "failed to run leave accrual", reqID)
		return
	}

	h.record(r, audit.Entry{
		ActorID:    user.UserID,
		Action:     audit.ActionAccrualRun,
		EntityType: "leave_accrual",
		EntityID:   summaryPeriod(summary),
		After:      summary,
	})
	api.Success(w, summary, reqID)
}

func (h *Handler) loadVisibleRequest(w http.ResponseWriter, r *http.Request) (leave.LeaveRequest, bool) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		failLeave(w, err, "leave_request_failed", "failed to load leave request", reqID)
		return leave.LeaveRequest{}, false
	}
	if !canActFor(user, req.EmployeeID) {
		// Hide other employees' requests entirely.
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
		return leave.LeaveRequest{}, false
	}
	return req, true
}

func (h *Handler) record(r *http.Request, entry audit.Entry) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", "action", entry.Action, "err", err)
	}
}

func canActFor(user auth.UserContext, employeeID string) bool {
	if employeeID != "" && employeeID == user.EmployeeID {
		return true
	}
	return auth.IsReviewer(user.Role)
}

func actorID(user auth.UserContext) string {
	if user.EmployeeID != "" {
		return user.EmployeeID
	}
	return user.UserID
}

// completedMonth reports whether year-month ended before now.
func completedMonth(now time.Time, year int, month time.Month) bool {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, now.Location())
	return !firstOfNext.After(now)
}

func summaryPeriod(s leave.AccrualSummary) string {
	if s.Year == 0 {
		return ""
	}
	return time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// decodeOptional accepts an empty body as the zero payload.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any, reqID string) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
	return false
}

func failLeave(w http.ResponseWriter, err error, code, message, reqID string) {
	var (
		validation   *leave.ValidationError
		insufficient *leave.InsufficientCreditsError
		notEligible  *leave.NotEligibleError
		conflict     *leave.StateConflictError
	)
	switch {
	case errors.Is(err, leave.ErrUnknownRole):
		api.Fail(w, http.StatusUnprocessableEntity, "unknown_role", err.Error(), reqID)
	case errors.As(err, &validation):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: validation.Field, Reason: validation.Reason}})
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_credits", insufficient.Error(), map[string]any{
			"year":      insufficient.Year,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
			"shortfall": insufficient.Shortfall,
		}, reqID)
	case errors.As(err, &notEligible):
		details := map[string]any{}
		if !notEligible.EligibleFrom.IsZero() {
			details["eligibleFrom"] = notEligible.EligibleFrom.Format(time.DateOnly)
		}
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "not_eligible", notEligible.Error(), details, reqID)
	case errors.As(err, &conflict):
		api.Fail(w, http.StatusConflict, "invalid_state", conflict.Error(), reqID)
	case errors.Is(err, leave.ErrRestoreIncomplete):
		api.Fail(w, http.StatusConflict, "restore_incomplete", "deducted credits can no longer be restored", reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
