package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one employee's credits for one calendar month.
type LedgerEntry struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employeeId"`
	Year           int             `json:"year"`
	Month          time.Month      `json:"month"`
	CreditsEarned  decimal.Decimal `json:"creditsEarned"`
	CreditsUsed    decimal.Decimal `json:"creditsUsed"`
	CreditsBalance decimal.Decimal `json:"creditsBalance"`
	AccruedAt      time.Time       `json:"accruedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type LeaveRequest struct {
	ID              string           `json:"id"`
	EmployeeID      string           `json:"employeeId"`
	LeaveType       LeaveType        `json:"leaveType"`
	StartDate       time.Time        `json:"startDate"`
	EndDate         time.Time        `json:"endDate"`
	DaysRequested   decimal.Decimal  `json:"daysRequested"`
	Reason          string           `json:"reason"`
	Status          Status           `json:"status"`
	ReviewedBy      string           `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time       `json:"reviewedAt,omitempty"`
	ReviewNotes     string           `json:"reviewNotes,omitempty"`
	CreditsDeducted *decimal.Decimal `json:"creditsDeducted,omitempty"`
	CreditsYear     *int             `json:"creditsYear,omitempty"`
	CancelledBy     string           `json:"cancelledBy,omitempty"`
	CancelledAt     *time.Time       `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// RequestEvent is one row of a request's audit trail.
type RequestEvent struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"requestId"`
	Action       string           `json:"action"`
	FromStatus   Status           `json:"fromStatus,omitempty"`
	ToStatus     Status           `json:"toStatus"`
	ActorID      string           `json:"actorId"`
	Notes        string           `json:"notes,omitempty"`
	CreditsDelta *decimal.Decimal `json:"creditsDelta,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type SubmitInput struct {
	EmployeeID string
	LeaveType  string
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
	// ActorID is who filed the request; defaults to the employee.
	ActorID string
}

type RequestListResult struct {
	Requests []LeaveRequest
	Total    int
}

// Allocation is the share of a deduction or restoration applied to one entry.
type Allocation struct {
	EntryID string          `json:"entryId"`
	Month   time.Month      `json:"month"`
	Amount  decimal.Decimal `json:"amount"`
}

type Deduction struct {
	Requested   decimal.Decimal `json:"requested"`
	Applied     decimal.Decimal `json:"applied"`
	Available   decimal.Decimal `json:"available"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	Allocations []Allocation    `json:"allocations,omitempty"`
}

// Complete reports whether the full amount was deducted. An incomplete
// deduction never touches the ledger.
func (d Deduction) Complete() bool {
	return d.Shortfall.IsZero() && d.Applied.Equal(d.Requested)
}

type Restoration struct {
	Requested   decimal.Decimal `json:"requested"`
	Applied     decimal.Decimal `json:"applied"`
	Restorable  decimal.Decimal `json:"restorable"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	Allocations []Allocation    `json:"allocations,omitempty"`
}

func (r Restoration) Complete() bool {
	return r.Shortfall.IsZero() && r.Applied.Equal(r.Requested)
}

type AccrualResult struct {
	Entry   *LedgerEntry
	Created bool
}

type CreditSummary struct {
	EmployeeID   string          `json:"employeeId"`
	Year         int             `json:"year"`
	Balance      decimal.Decimal `json:"balance"`
	Eligible     bool            `json:"eligible"`
	EligibleFrom *time.Time      `json:"eligibleFrom,omitempty"`
	Backfilled   int             `json:"backfilled"`
	Entries      []LedgerEntry   `json:"entries"`
}
