package auth

import (
	"sort"

	"workforce/internal/domain/leave"
)

const (
	PermLeaveRead        = "leave.read"
	PermLeaveWrite       = "leave.write"
	PermLeaveApprove     = "leave.approve"
	PermLeaveAccrual     = "leave.accrual"
	PermAttendanceRead   = "attendance.read"
	PermAttendanceImport = "attendance.import"
	PermNotificationRead = "notifications.read"
	PermAuditRead        = "audit.read"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTeamLead   = "team_lead"
	RoleSupervisor = "supervisor"
	RoleHR         = "hr"
	RoleAgent      = "agent"
	RoleEmployee   = "employee"
	RoleIT         = "it"
	RoleUtility    = "utility"
	RoleStaff      = "staff"
)

var DefaultPermissions = []string{
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveAccrual,
	PermAttendanceRead,
	PermAttendanceImport,
	PermNotificationRead,
	PermAuditRead,
}

var selfService = []string{
	PermLeaveRead,
	PermLeaveWrite,
	PermAttendanceRead,
	PermNotificationRead,
}

var reviewer = append(append([]string{}, selfService...), PermLeaveApprove)

var hrOffice = append(append([]string{}, reviewer...), PermLeaveAccrual, PermAttendanceImport, PermAuditRead)

var RolePermissions = map[string][]string{
	RoleSuperAdmin: DefaultPermissions,
	RoleAdmin:      hrOffice,
	RoleHR:         hrOffice,
	RoleManager:    reviewer,
	RoleTeamLead:   reviewer,
	RoleSupervisor: reviewer,
	RoleAgent:      selfService,
	RoleEmployee:   selfService,
	RoleIT:         selfService,
	RoleUtility:    selfService,
	RoleStaff:      selfService,
}

// NormalizeRole uses the same spelling rules as the leave tier table so a
// token role and an employee role compare equal.
func NormalizeRole(role string) string {
	return leave.NormalizeRole(role)
}

func HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// IsReviewer reports whether role may act on other employees' leave.
func IsReviewer(role string) bool {
	return HasPermission(role, PermLeaveApprove)
}

func Roles() []string {
	out := make([]string, 0, len(RolePermissions))
	for role := range RolePermissions {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
