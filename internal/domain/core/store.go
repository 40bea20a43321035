package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/querier"
)

// Directory is the read-only view of employees and schedules the leave and
// attendance packages depend on.
type Directory interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
	ScheduleOn(ctx context.Context, employeeID string, date time.Time) (*Schedule, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id::text, first_name, middle_name, last_name, full_name, email, role, hired_date, active`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.FirstName, &emp.MiddleName, &emp.LastName, &emp.FullName, &emp.Email, &emp.Role, &emp.HiredDate, &emp.Active)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("get employee %s: %w", employeeID, err)
	}
	return emp, nil
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE active = true
    ORDER BY last_name, first_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// ScheduleOn returns the schedule in effect on date, or nil when the employee
// has none.
func (s *Store) ScheduleOn(ctx context.Context, employeeID string, date time.Time) (*Schedule, error) {
	var sched Schedule
	var timeIn, timeOut string
	err := s.DB.QueryRow(ctx, `
    SELECT employee_id::text, effective_from, time_in::text, time_out::text
    FROM employee_schedules
    WHERE employee_id = $1 AND effective_from <= $2
    ORDER BY effective_from DESC
    LIMIT 1
  `, employeeID, date.Format(time.DateOnly)).Scan(&sched.EmployeeID, &sched.EffectiveFrom, &timeIn, &timeOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sched.TimeIn, err = ParseClock(timeIn); err != nil {
		return nil, err
	}
	if sched.TimeOut, err = ParseClock(timeOut); err != nil {
		return nil, err
	}
	return &sched, nil
}
