package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/platform/db"
	"workforce/internal/platform/querier"
)

// PGStore is the Postgres Store. Numeric columns are read as text so that
// decimals round-trip exactly.
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

const ledgerColumns = `id::text, employee_id::text, year, month, credits_earned::text, credits_used::text, credits_balance::text, accrued_at, created_at, updated_at`

func scanLedgerEntry(row pgx.Row) (LedgerEntry, error) {
	var entry LedgerEntry
	var month int
	var earned, used, balance string
	if err := row.Scan(&entry.ID, &entry.EmployeeID, &entry.Year, &month, &earned, &used, &balance, &entry.AccruedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return LedgerEntry{}, err
	}
	entry.Month = time.Month(month)
	var err error
	if entry.CreditsEarned, err = decimal.NewFromString(earned); err != nil {
		return LedgerEntry{}, err
	}
	if entry.CreditsUsed, err = decimal.NewFromString(used); err != nil {
		return LedgerEntry{}, err
	}
	if entry.CreditsBalance, err = decimal.NewFromString(balance); err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (s *PGStore) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, bool, error) {
	stored, err := scanLedgerEntry(s.DB.QueryRow(ctx, `
    INSERT INTO leave_credits (employee_id, year, month, credits_earned, credits_used, credits_balance, accrued_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (employee_id, year, month) DO NOTHING
    RETURNING `+ledgerColumns,
		entry.EmployeeID, entry.Year, int(entry.Month), entry.CreditsEarned.String(), entry.CreditsUsed.String(), entry.CreditsBalance.String(), entry.AccruedAt))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, false, err
	}

	existing, err := scanLedgerEntry(s.DB.QueryRow(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_credits
    WHERE employee_id = $1 AND year = $2 AND month = $3
  `, entry.EmployeeID, entry.Year, int(entry.Month)))
	if err != nil {
		return LedgerEntry{}, false, fmt.Errorf("load existing ledger entry: %w", err)
	}
	return existing, false, nil
}

func (s *PGStore) LedgerEntries(ctx context.Context, employeeID string, year int) ([]LedgerEntry, error) {
	return s.queryLedger(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_credits
    WHERE employee_id = $1 AND year = $2
    ORDER BY month
  `, employeeID, year)
}

func (s *PGStore) LockLedgerEntries(ctx context.Context, employeeID string, year int) ([]LedgerEntry, error) {
	return s.queryLedger(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_credits
    WHERE employee_id = $1 AND year = $2
    ORDER BY month
    FOR UPDATE
  `, employeeID, year)
}

func (s *PGStore) queryLedger(ctx context.Context, sql string, args ...any) ([]LedgerEntry, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PGStore) UpdateLedgerUsage(ctx context.Context, entryID string, used, balance decimal.Decimal) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_credits
    SET credits_used = $2, credits_balance = $3, updated_at = now()
    WHERE id = $1
  `, entryID, used.String(), balance.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger entry %s not found", entryID)
	}
	return nil
}

func (s *PGStore) SumBalance(ctx context.Context, employeeID string, year int) (decimal.Decimal, error) {
	var total string
	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(credits_balance), 0)::text
    FROM leave_credits
    WHERE employee_id = $1 AND year = $2
  `, employeeID, year).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

const requestColumns = `id::text, employee_id::text, leave_type, start_date, end_date, days_requested::text, reason, status,
    COALESCE(reviewed_by, ''), reviewed_at, COALESCE(review_notes, ''), credits_deducted::text, credits_year,
    COALESCE(cancelled_by, ''), cancelled_at, created_at, updated_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	var days string
	var deducted *string
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveType, &req.StartDate, &req.EndDate, &days, &req.Reason, &req.Status,
		&req.ReviewedBy, &req.ReviewedAt, &req.ReviewNotes, &deducted, &req.CreditsYear,
		&req.CancelledBy, &req.CancelledAt, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return LeaveRequest{}, err
	}
	var err error
	if req.DaysRequested, err = decimal.NewFromString(days); err != nil {
		return LeaveRequest{}, err
	}
	if deducted != nil {
		d, err := decimal.NewFromString(*deducted)
		if err != nil {
			return LeaveRequest{}, err
		}
		req.CreditsDeducted = &d
	}
	return req, nil
}

func (s *PGStore) CreateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	created, err := scanRequest(s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type, start_date, end_date, days_requested, reason, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
    RETURNING `+requestColumns,
		req.EmployeeID, string(req.LeaveType), req.StartDate, req.EndDate, req.DaysRequested.String(), req.Reason, string(req.Status), req.CreatedAt))
	if err != nil {
		return LeaveRequest{}, err
	}
	return created, nil
}

func (s *PGStore) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.loadRequest(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, requestID)
}

func (s *PGStore) LockRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.loadRequest(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID)
}

func (s *PGStore) loadRequest(ctx context.Context, sql, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, sql, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	return req, err
}

func (s *PGStore) UpdateRequest(ctx context.Context, req LeaveRequest) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2,
        reviewed_by = NULLIF($3, ''),
        reviewed_at = $4,
        review_notes = NULLIF($5, ''),
        credits_deducted = $6,
        credits_year = $7,
        cancelled_by = NULLIF($8, ''),
        cancelled_at = $9,
        updated_at = $10
    WHERE id = $1
  `, req.ID, string(req.Status), req.ReviewedBy, req.ReviewedAt, req.ReviewNotes, decimalText(req.CreditsDeducted), req.CreditsYear,
		req.CancelledBy, req.CancelledAt, req.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListRequests(ctx context.Context, employeeID string, limit, offset int) (RequestListResult, error) {
	where := ""
	args := []any{}
	if employeeID != "" {
		where = " WHERE employee_id = $1"
		args = append(args, employeeID)
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := "SELECT " + requestColumns + " FROM leave_requests" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	requests := make([]LeaveRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		requests = append(requests, req)
	}
	return RequestListResult{Requests: requests, Total: total}, rows.Err()
}

func (s *PGStore) InsertEvent(ctx context.Context, event RequestEvent) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_request_events (request_id, action, from_status, to_status, actor_id, notes, credits_delta, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, event.RequestID, event.Action, string(event.FromStatus), string(event.ToStatus), event.ActorID, event.Notes, decimalText(event.CreditsDelta), event.CreatedAt)
	return err
}

func (s *PGStore) ListEvents(ctx context.Context, requestID string) ([]RequestEvent, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, request_id::text, action, from_status, to_status, actor_id, notes, credits_delta::text, created_at
    FROM leave_request_events
    WHERE request_id = $1
    ORDER BY created_at, id
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]RequestEvent, 0)
	for rows.Next() {
		var ev RequestEvent
		var delta *string
		if err := rows.Scan(&ev.ID, &ev.RequestID, &ev.Action, &ev.FromStatus, &ev.ToStatus, &ev.ActorID, &ev.Notes, &delta, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if delta != nil {
			d, err := decimal.NewFromString(*delta)
			if err != nil {
				return nil, err
			}
			ev.CreditsDelta = &d
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	text := d.String()
	return &text
}
