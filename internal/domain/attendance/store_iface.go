package attendance

import (
	"context"
	"time"
)

type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateUpload(ctx context.Context, upload Upload) (Upload, error)
	UpdateUpload(ctx context.Context, upload Upload) error
	GetUpload(ctx context.Context, uploadID string) (Upload, error)

	// InsertScan stores a scan unless the same badge event already exists.
	// It reports whether a row was written.
	InsertScan(ctx context.Context, scan ScanRecord) (bool, error)
	// ScansBetween returns an employee's scans in [from, to) ordered by time.
	ScansBetween(ctx context.Context, employeeID string, from, to time.Time) ([]ScanRecord, error)

	UpsertDay(ctx context.Context, day Day) (Day, error)
	ListDays(ctx context.Context, employeeID string, from, to time.Time) ([]Day, error)
}
