package core

import (
	"strings"
	"time"
)

type Employee struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"firstName"`
	MiddleName string     `json:"middleName,omitempty"`
	LastName   string     `json:"lastName"`
	FullName   string     `json:"fullName,omitempty"`
	Email      string     `json:"email,omitempty"`
	Role       string     `json:"role"`
	HiredDate  *time.Time `json:"hiredDate,omitempty"`
	Active     bool       `json:"active"`
}

// DisplayName prefers the stored full name and falls back to "First Last".
func (e Employee) DisplayName() string {
	if name := strings.TrimSpace(e.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Schedule is the working window effective from a date onwards. TimeIn and
// TimeOut are offsets from local midnight.
type Schedule struct {
	EmployeeID    string        `json:"employeeId"`
	EffectiveFrom time.Time     `json:"effectiveFrom"`
	TimeIn        time.Duration `json:"timeIn"`
	TimeOut       time.Duration `json:"timeOut"`
}

// On anchors the schedule to a shift date. A time-out at or before the
// time-in belongs to the following day.
func (s Schedule) On(date time.Time) (in, out time.Time) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	in = midnight.Add(s.TimeIn)
	out = midnight.Add(s.TimeOut)
	if s.TimeOut <= s.TimeIn {
		out = out.AddDate(0, 0, 1)
	}
	return in, out
}
