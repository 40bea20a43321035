package leave

import "strings"

type LeaveType string

const (
	TypeVacation      LeaveType = "VL"
	TypeSick          LeaveType = "SL"
	TypeBirthday      LeaveType = "BL"
	TypeSpecial       LeaveType = "SPL"
	TypeLeaveAbsence  LeaveType = "LOA"
	TypeDomestic      LeaveType = "LDV"
	TypeUnpaidTimeOff LeaveType = "UPTO"
	TypeMaternity     LeaveType = "ML"
)

var leaveTypes = map[LeaveType]bool{
	TypeVacation:      true,
	TypeSick:          true,
	TypeBirthday:      true,
	TypeSpecial:       false,
	TypeLeaveAbsence:  false,
	TypeDomestic:      false,
	TypeUnpaidTimeOff: false,
	TypeMaternity:     false,
}

func ParseLeaveType(raw string) (LeaveType, error) {
	t := LeaveType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := leaveTypes[t]; !ok {
		return "", &ValidationError{Field: "leaveType", Reason: "unknown leave type " + raw}
	}
	return t, nil
}

// Credited types draw from the ledger; the rest never touch it.
func (t LeaveType) Credited() bool {
	return leaveTypes[t]
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusCancelled Status = "cancelled"
)
