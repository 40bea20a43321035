package notifications

const (
	TypeLeaveSubmitted = "leave_submitted"
	TypeLeaveApproved  = "leave_approved"
	TypeLeaveDenied    = "leave_denied"
	TypeLeaveCancelled = "leave_cancelled"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)
