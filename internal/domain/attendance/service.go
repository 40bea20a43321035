package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"workforce/internal/domain/core"
	"workforce/internal/platform/clock"
	"workforce/internal/requestctx"
)

type Service struct {
	Store     Store
	Employees core.Directory
	Clock     clock.Clock
	Location  *time.Location
	// OnImport, if set, sees every upload that finishes processing.
	OnImport func(Upload)
}

func NewService(store Store, employees core.Directory, clk clock.Clock, loc *time.Location) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Employees: employees, Clock: clk, Location: loc}
}

type dayKey struct {
	employeeID string
	date       string
}

// Import parses a device export and folds its scans into attendance days.
// A file that cannot be read as an export produces a failed upload, not an
// error. Scans and days are written in one transaction; re-importing the same
// file changes nothing.
func (s *Service) Import(ctx context.Context, in ImportInput) (Upload, error) {
	if err := s.validateImport(in); err != nil {
		return Upload{}, err
	}
	dateFrom := s.civil(in.DateFrom)
	dateTo := s.civil(in.DateTo)

	upload, err := s.Store.CreateUpload(ctx, Upload{
		SiteID:     strings.TrimSpace(in.SiteID),
		FileName:   strings.TrimSpace(in.FileName),
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		Status:     UploadProcessing,
		UploadedBy: in.UploadedBy,
		CreatedAt:  s.Clock.Now(),
	})
	if err != nil {
		return Upload{}, fmt.Errorf("create upload: %w", err)
	}

	parsed, err := Parse(bytes.NewReader(in.Data), s.Location)
	if err != nil {
		var parseErr *ImportParseError
		if errors.As(err, &parseErr) {
			return s.fail(ctx, upload, parseErr.Error())
		}
		if _, failErr := s.fail(ctx, upload, err.Error()); failErr != nil {
			requestctx.Logger(ctx).Warn("mark upload failed", "upload_id", upload.ID, "err", failErr)
		}
		return Upload{}, err
	}

	employees, err := s.Employees.ListActiveEmployees(ctx)
	if err != nil {
		if _, failErr := s.fail(ctx, upload, "employee directory unavailable"); failErr != nil {
			requestctx.Logger(ctx).Warn("mark upload failed", "upload_id", upload.ID, "err", failErr)
		}
		return Upload{}, fmt.Errorf("list employees: %w", err)
	}
	matcher := NewMatcher(CandidatesFrom(employees))

	upload.SkippedRecords = len(parsed.Skipped)
	upload.TotalRecords = len(parsed.Rows) + len(parsed.Skipped)

	var scans []ScanRecord
	unmatched := map[string]*UnmatchedName{}
	for _, row := range parsed.Rows {
		date := s.shiftDate(row.At)
		if date.Before(dateFrom) || date.After(dateTo) {
			upload.SkippedRecords++
			continue
		}
		cand, ok := matcher.Match(row.Name)
		if !ok {
			upload.UnmatchedRecords++
			key := strings.Join(tokens(row.Name), " ")
			if w, seen := unmatched[key]; seen {
				w.Scans++
			} else {
				unmatched[key] = &UnmatchedName{Name: strings.Join(strings.Fields(row.Name), " "), Scans: 1}
			}
			continue
		}
		upload.MatchedRecords++
		scans = append(scans, ScanRecord{
			UploadID:   upload.ID,
			EmployeeID: cand.EmployeeID,
			SiteID:     upload.SiteID,
			ScanAt:     row.At,
			DeviceNo:   row.DeviceNo,
			Mode:       row.Mode,
		})
	}
	upload.Warnings = unmatchedWarnings(unmatched)
	upload.UnmatchedNames = make([]string, 0, len(upload.Warnings))
	for _, w := range upload.Warnings {
		upload.UnmatchedNames = append(upload.UnmatchedNames, w.Name)
	}

	err = s.Store.WithTx(ctx, func(tx Store) error {
		touched := map[dayKey]time.Time{}
		for _, scan := range scans {
			if _, err := tx.InsertScan(ctx, scan); err != nil {
				return err
			}
			date := s.shiftDate(scan.ScanAt)
			touched[dayKey{scan.EmployeeID, date.Format(time.DateOnly)}] = date
		}

		keys := make([]dayKey, 0, len(touched))
		for k := range touched {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].employeeID != keys[j].employeeID {
				return keys[i].employeeID < keys[j].employeeID
			}
			return keys[i].date < keys[j].date
		})
		for _, k := range keys {
			if err := s.recomputeDay(ctx, tx, k.employeeID, touched[k], upload.ID); err != nil {
				return err
			}
			upload.DaysUpserted++
		}

		now := s.Clock.Now()
		upload.Status = UploadCompleted
		upload.ProcessedAt = &now
		return tx.UpdateUpload(ctx, upload)
	})
	if err != nil {
		if _, failErr := s.fail(ctx, upload, err.Error()); failErr != nil {
			requestctx.Logger(ctx).Warn("mark upload failed", "upload_id", upload.ID, "err", failErr)
		}
		return Upload{}, fmt.Errorf("import attendance: %w", err)
	}

	if len(upload.Warnings) > 0 {
		requestctx.Logger(ctx).Info("attendance import has unmatched names", "upload_id", upload.ID, "names", upload.UnmatchedNames)
	}
	s.observe(upload)
	return upload, nil
}

// recomputeDay rebuilds one day from every stored scan, not just the ones in
// the current file.
func (s *Service) recomputeDay(ctx context.Context, tx Store, employeeID string, date time.Time, uploadID string) error {
	stored, err := tx.ScansBetween(ctx, employeeID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	schedule, err := s.Employees.ScheduleOn(ctx, employeeID, date)
	if err != nil {
		return fmt.Errorf("load schedule for %s: %w", employeeID, err)
	}
	scans := make([]Scan, 0, len(stored))
	for _, r := range stored {
		scans = append(scans, Scan{At: r.ScanAt.In(s.Location), SiteID: r.SiteID, DeviceNo: r.DeviceNo})
	}
	day := Aggregate(date, scans, schedule)
	day.EmployeeID = employeeID
	day.UploadID = uploadID
	day.UpdatedAt = s.Clock.Now()
	_, err = tx.UpsertDay(ctx, day)
	return err
}

func (s *Service) fail(ctx context.Context, upload Upload, message string) (Upload, error) {
	now := s.Clock.Now()
	upload.Status = UploadFailed
	upload.ErrorMessage = message
	upload.ProcessedAt = &now
	upload.Warnings = nil
	if err := s.Store.UpdateUpload(ctx, upload); err != nil {
		return Upload{}, fmt.Errorf("mark upload failed: %w", err)
	}
	s.observe(upload)
	return upload, nil
}

func (s *Service) observe(upload Upload) {
	if s.OnImport != nil {
		s.OnImport(upload)
	}
}

func (s *Service) validateImport(in ImportInput) error {
	if strings.TrimSpace(in.SiteID) == "" {
		return &ValidationError{Field: "siteId", Reason: "is required"}
	}
	if in.DateFrom.IsZero() {
		return &ValidationError{Field: "dateFrom", Reason: "is required"}
	}
	if in.DateTo.IsZero() {
		return &ValidationError{Field: "dateTo", Reason: "is required"}
	}
	if s.civil(in.DateTo).Before(s.civil(in.DateFrom)) {
		return &ValidationError{Field: "dateTo", Reason: "must not be before dateFrom"}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, uploadID string) (Upload, error) {
	if strings.TrimSpace(uploadID) == "" {
		return Upload{}, &ValidationError{Field: "uploadId", Reason: "is required"}
	}
	return s.Store.GetUpload(ctx, uploadID)
}

func (s *Service) Days(ctx context.Context, employeeID string, from, to time.Time) ([]Day, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, &ValidationError{Field: "employeeId", Reason: "is required"}
	}
	if from.IsZero() || to.IsZero() {
		return nil, &ValidationError{Field: "from", Reason: "from and to are required"}
	}
	from, to = s.civil(from), s.civil(to)
	if to.Before(from) {
		return nil, &ValidationError{Field: "to", Reason: "must not be before from"}
	}
	days, err := s.Store.ListDays(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance days: %w", err)
	}
	if days == nil {
		days = []Day{}
	}
	return days, nil
}

// civil keeps the calendar date of t as written and anchors it to midnight
// in the service location.
func (s *Service) civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.Location)
}

// shiftDate is the calendar date an instant falls on in the service location.
func (s *Service) shiftDate(t time.Time) time.Time {
	return s.civil(t.In(s.Location))
}

// unmatchedWarnings lists each unmatched name once, spelled as first seen.
func unmatchedWarnings(byKey map[string]*UnmatchedName) []UnmatchedName {
	out := make([]UnmatchedName, 0, len(byKey))
	for _, w := range byKey {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
