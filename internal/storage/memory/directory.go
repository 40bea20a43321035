// Package memory holds in-memory stores used by tests and local tooling.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"workforce/internal/domain/core"
)

// Directory is an in-memory core.Directory.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]core.Employee
	schedules map[string][]core.Schedule
}

func NewDirectory() *Directory {
	return &Directory{
		employees: make(map[string]core.Employee),
		schedules: make(map[string][]core.Schedule),
	}
}

func (d *Directory) AddEmployee(emp core.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[emp.ID] = emp
}

func (d *Directory) AddSchedule(s core.Schedule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := append(d.schedules[s.EmployeeID], s)
	sort.Slice(list, func(i, j int) bool { return list[i].EffectiveFrom.Before(list[j].EffectiveFrom) })
	d.schedules[s.EmployeeID] = list
}

func (d *Directory) GetEmployee(_ context.Context, employeeID string) (core.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	emp, ok := d.employees[employeeID]
	if !ok {
		return core.Employee{}, core.ErrEmployeeNotFound
	}
	return emp, nil
}

func (d *Directory) ListActiveEmployees(_ context.Context) ([]core.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.Employee, 0, len(d.employees))
	for _, emp := range d.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) ScheduleOn(_ context.Context, employeeID string, date time.Time) (*core.Schedule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var found *core.Schedule
	for _, s := range d.schedules[employeeID] {
		from := time.Date(s.EffectiveFrom.Year(), s.EffectiveFrom.Month(), s.EffectiveFrom.Day(), 0, 0, 0, 0, time.UTC)
		if from.After(day) {
			break
		}
		s := s
		found = &s
	}
	return found, nil
}
