package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store persists the ledger, requests and their audit trail. Implementations
// must enforce uniqueness of (employee, year, month) themselves.
type Store interface {
	// WithTx runs fn against a transaction-scoped Store. Calling WithTx on a
	// store that is already transactional runs fn in the same transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	// InsertLedgerEntry inserts entry unless one exists for its period, in
	// which case the stored row is returned with created=false.
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, bool, error)
	LedgerEntries(ctx context.Context, employeeID string, year int) ([]LedgerEntry, error)
	// LockLedgerEntries returns the year's entries in month order, locked
	// until the surrounding transaction ends.
	LockLedgerEntries(ctx context.Context, employeeID string, year int) ([]LedgerEntry, error)
	UpdateLedgerUsage(ctx context.Context, entryID string, used, balance decimal.Decimal) error
	SumBalance(ctx context.Context, employeeID string, year int) (decimal.Decimal, error)

	CreateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	LockRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	UpdateRequest(ctx context.Context, req LeaveRequest) error
	ListRequests(ctx context.Context, employeeID string, limit, offset int) (RequestListResult, error)

	InsertEvent(ctx context.Context, event RequestEvent) error
	ListEvents(ctx context.Context, requestID string) ([]RequestEvent, error)
}
