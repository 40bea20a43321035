package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/db"
	"workforce/internal/platform/querier"
)

type PGStore struct {
	DB querier.Querier
}

func NewStore(q querier.Querier) *PGStore {
	return &PGStore{DB: q}
}

func (s *PGStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		return fn(&PGStore{DB: tx})
	})
}

const uploadColumns = `id::text, site_id, file_name, date_from, date_to, status, total_records, matched_records, unmatched_records, skipped_records, days_upserted, unmatched_names::text, error_message, uploaded_by, created_at, processed_at`

func scanUpload(row pgx.Row) (Upload, error) {
	var u Upload
	var status, names string
	err := row.Scan(&u.ID, &u.SiteID, &u.FileName, &u.DateFrom, &u.DateTo, &status,
		&u.TotalRecords, &u.MatchedRecords, &u.UnmatchedRecords, &u.SkippedRecords, &u.DaysUpserted,
		&names, &u.ErrorMessage, &u.UploadedBy, &u.CreatedAt, &u.ProcessedAt)
	if err != nil {
		return Upload{}, err
	}
	u.Status = UploadStatus(status)
	if err := json.Unmarshal([]byte(names), &u.UnmatchedNames); err != nil {
		return Upload{}, fmt.Errorf("decode unmatched names: %w", err)
	}
	return u, nil
}

func encodeNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *PGStore) CreateUpload(ctx context.Context, u Upload) (Upload, error) {
	names, err := encodeNames(u.UnmatchedNames)
	if err != nil {
		return Upload{}, err
	}
	return scanUpload(s.DB.QueryRow(ctx, `
    INSERT INTO attendance_uploads (site_id, file_name, date_from, date_to, status, unmatched_names, uploaded_by)
    VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7)
    RETURNING `+uploadColumns,
		u.SiteID, u.FileName, u.DateFrom.Format(time.DateOnly), u.DateTo.Format(time.DateOnly), string(u.Status), names, u.UploadedBy))
}

func (s *PGStore) UpdateUpload(ctx context.Context, u Upload) error {
	names, err := encodeNames(u.UnmatchedNames)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE attendance_uploads
    SET status = $2, total_records = $3, matched_records = $4, unmatched_records = $5,
        skipped_records = $6, days_upserted = $7, unmatched_names = $8::jsonb,
        error_message = $9, processed_at = $10
    WHERE id = $1
  `, u.ID, string(u.Status), u.TotalRecords, u.MatchedRecords, u.UnmatchedRecords,
		u.SkippedRecords, u.DaysUpserted, names, u.ErrorMessage, u.ProcessedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (s *PGStore) GetUpload(ctx context.Context, uploadID string) (Upload, error) {
	u, err := scanUpload(s.DB.QueryRow(ctx, `
    SELECT `+uploadColumns+`
    FROM attendance_uploads
    WHERE id = $1
  `, uploadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Upload{}, ErrUploadNotFound
	}
	return u, err
}

func (s *PGStore) InsertScan(ctx context.Context, scan ScanRecord) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO biometric_records (upload_id, employee_id, site_id, scan_at, device_no, mode)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT ON CONSTRAINT biometric_records_scan_key DO NOTHING
  `, scan.UploadID, scan.EmployeeID, scan.SiteID, scan.ScanAt, scan.DeviceNo, scan.Mode)
	if err != nil {
		return false, fmt.Errorf("insert scan: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ScansBetween(ctx context.Context, employeeID string, from, to time.Time) ([]ScanRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, upload_id::text, employee_id::text, site_id, scan_at, device_no, mode
    FROM biometric_records
    WHERE employee_id = $1 AND scan_at >= $2 AND scan_at < $3
    ORDER BY scan_at, device_no
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var r ScanRecord
		if err := rows.Scan(&r.ID, &r.UploadID, &r.EmployeeID, &r.SiteID, &r.ScanAt, &r.DeviceNo, &r.Mode); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const dayColumns = `id::text, employee_id::text, shift_date, scheduled_time_in, scheduled_time_out, actual_time_in, actual_time_out, status, bio_in_site_id, bio_out_site_id, upload_id::text, updated_at`

func scanDay(row pgx.Row) (Day, error) {
	var d Day
	var status string
	var bioIn, bioOut, uploadID *string
	err := row.Scan(&d.ID, &d.EmployeeID, &d.ShiftDate, &d.ScheduledTimeIn, &d.ScheduledTimeOut,
		&d.ActualTimeIn, &d.ActualTimeOut, &status, &bioIn, &bioOut, &uploadID, &d.UpdatedAt)
	if err != nil {
		return Day{}, err
	}
	d.Status = DayStatus(status)
	d.BioInSiteID = deref(bioIn)
	d.BioOutSiteID = deref(bioOut)
	d.UploadID = deref(uploadID)
	return d, nil
}

func (s *PGStore) UpsertDay(ctx context.Context, d Day) (Day, error) {
	return scanDay(s.DB.QueryRow(ctx, `
    INSERT INTO attendance_days (employee_id, shift_date, scheduled_time_in, scheduled_time_out,
      actual_time_in, actual_time_out, status, bio_in_site_id, bio_out_site_id, upload_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT ON CONSTRAINT attendance_days_shift_key DO UPDATE
    SET scheduled_time_in = EXCLUDED.scheduled_time_in,
        scheduled_time_out = EXCLUDED.scheduled_time_out,
        actual_time_in = EXCLUDED.actual_time_in,
        actual_time_out = EXCLUDED.actual_time_out,
        status = EXCLUDED.status,
        bio_in_site_id = EXCLUDED.bio_in_site_id,
        bio_out_site_id = EXCLUDED.bio_out_site_id,
        upload_id = EXCLUDED.upload_id,
        updated_at = now()
    RETURNING `+dayColumns,
		d.EmployeeID, d.ShiftDate.Format(time.DateOnly), d.ScheduledTimeIn, d.ScheduledTimeOut,
		d.ActualTimeIn, d.ActualTimeOut, string(d.Status), nullable(d.BioInSiteID), nullable(d.BioOutSiteID), nullable(d.UploadID)))
}

func (s *PGStore) ListDays(ctx context.Context, employeeID string, from, to time.Time) ([]Day, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+dayColumns+`
    FROM attendance_days
    WHERE employee_id = $1 AND shift_date BETWEEN $2 AND $3
    ORDER BY shift_date
  `, employeeID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
