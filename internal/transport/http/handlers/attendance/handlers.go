package attendancehandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/attendance"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/requestctx"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

const defaultMaxUploadBytes = 10 << 20

type Handler struct {
	Service        *attendance.Service
	Audit          audit.Recorder
	MaxUploadBytes int64
}

func NewHandler(service *attendance.Service, auditSvc audit.Recorder, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Service: service, Audit: auditSvc, MaxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceImport)).Post("/uploads", h.handleImport)
		r.With(middleware.RequirePermission(auth.PermAttendanceImport)).Get("/uploads/{uploadID}", h.handleGetUpload)
		r.With(middleware.RequirePermission(auth.PermAttendanceImport)).Get("/uploads/{uploadID}/report.pdf", h.handleReport)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead)).Get("/days", h.handleListDays)
	})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "attendance file exceeds the upload limit", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "expected multipart form data", reqID)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("multipart cleanup failed", "err", err)
			}
		}
	}()

	v := shared.NewValidator()
	siteID := r.FormValue("siteId")
	v.Required("siteId", siteID, "is required")
	dateFrom, _ := v.Date("dateFrom", r.FormValue("dateFrom"))
	dateTo, _ := v.Date("dateTo", r.FormValue("dateTo"))
	v.DateOrder("dateFrom", dateFrom, "dateTo", dateTo)

	file, header, err := r.FormFile("file")
	if err != nil {
		v.Add("file", "is required")
	}
	if v.Reject(w, reqID) {
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read attendance file", reqID)
		return
	}

	upload, err := h.Service.Import(r.Context(), attendance.ImportInput{
		FileName:   filepath.Base(header.Filename),
		Data:       data,
		SiteID:     siteID,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		UploadedBy: user.UserID,
	})
	if err != nil {
		failAttendance(w, err, "attendance_import_failed", "failed to import attendance file", reqID)
		return
	}

	h.record(r, audit.Entry{
		ActorID:    user.UserID,
		Action:     audit.ActionAttendanceImport,
		EntityType: "attendance_upload",
		EntityID:   upload.ID,
		After: map[string]any{
			"status":    upload.Status,
			"total":     upload.TotalRecords,
			"matched":   upload.MatchedRecords,
			"unmatched": upload.UnmatchedRecords,
			"skipped":   upload.SkippedRecords,
		},
	})

	if upload.Status == attendance.UploadFailed {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "import_failed", upload.ErrorMessage, upload, reqID)
		return
	}
	api.Created(w, upload, reqID)
}

func (h *Handler) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	upload, err := h.Service.Get(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		failAttendance(w, err, "attendance_upload_failed", "failed to load attendance upload", reqID)
		return
	}
	api.Success(w, upload, reqID)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	uploadID := chi.URLParam(r, "uploadID")
	pdf, err := h.Service.Report(r.Context(), uploadID)
	if err != nil {
		failAttendance(w, err, "attendance_report_failed", "failed to render attendance report", reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="attendance-`+sanitizeFilePart(uploadID)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("attendance report write failed", "err", err)
	}
}

func (h *Handler) handleListDays(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	query := r.URL.Query()
	employeeID := strings.TrimSpace(query.Get("employeeId"))
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	v := shared.NewValidator()
	v.Required("employeeId", employeeID, "is required")
	from, _ := v.Date("from", query.Get("from"))
	to, _ := v.Date("to", query.Get("to"))
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, reqID) {
		return
	}
	if employeeID != user.EmployeeID && !auth.IsReviewer(user.Role) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's attendance", reqID)
		return
	}

	days, err := h.Service.Days(r.Context(), employeeID, from, to)
	if err != nil {
		failAttendance(w, err, "attendance_days_failed", "failed to list attendance days", reqID)
		return
	}
	api.Success(w, days, reqID)
}

func (h *Handler) record(r *http.Request, entry audit.Entry) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", "action", entry.Action, "err", err)
	}
}

func sanitizeFilePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return -1
		}
	}, s)
}

func failAttendance(w http.ResponseWriter, err error, code, message, reqID string) {
	var validation *attendance.ValidationError
	switch {
	case errors.As(err, &validation):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: validation.Field, Reason: validation.Reason}})
	case errors.Is(err, attendance.ErrUploadNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "attendance upload not found", reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
