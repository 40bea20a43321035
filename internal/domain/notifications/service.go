package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workforce/internal/domain/core"
	"workforce/internal/domain/leave"
	"workforce/internal/requestctx"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Employees   core.Directory
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, employees core.Directory, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Employees: employees, Mailer: mailer, DefaultFrom: from}
}

// Create stores an in-app notification and mails a copy when the employee
// has an address. Mail failures are logged, never returned.
func (s *Service) Create(ctx context.Context, employeeID, ntype, title, body string) (Notification, error) {
	n, err := s.store.CreateNotification(ctx, Notification{EmployeeID: employeeID, Type: ntype, Title: title, Body: body})
	if err != nil {
		return Notification{}, err
	}

	if s.Mailer == nil || s.Employees == nil {
		return n, nil
	}
	emp, err := s.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		requestctx.Logger(ctx).Warn("notification email lookup failed", "employee_id", employeeID, "err", err)
		return n, nil
	}
	if strings.TrimSpace(emp.Email) == "" {
		return n, nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, emp.Email, title, body); err != nil {
		requestctx.Logger(ctx).Warn("notification email send failed", "employee_id", employeeID, "err", err)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, employeeID string, limit, offset int) (ListResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.store.ListNotifications(ctx, employeeID, limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	total, unread, err := s.store.CountNotifications(ctx, employeeID)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Notifications: items, Total: total, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, employeeID, notificationID string) error {
	return s.store.MarkRead(ctx, employeeID, notificationID)
}

// Publish turns leave workflow events into notifications for the requester.
func (s *Service) Publish(ctx context.Context, event leave.Event) {
	ntype, title, body := leaveMessage(event)
	if ntype == "" {
		return
	}
	if _, err := s.Create(ctx, event.Request.EmployeeID, ntype, title, body); err != nil {
		requestctx.Logger(ctx).Warn("leave notification failed", "request_id", event.Request.ID, "event", event.Type, "err", err)
	}
}

func leaveMessage(event leave.Event) (ntype, title, body string) {
	req := event.Request
	period := fmt.Sprintf("%s leave from %s to %s (%s days)",
		req.LeaveType, req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly), req.DaysRequested.String())

	switch event.Type {
	case leave.EventSubmitted:
		return TypeLeaveSubmitted, "Leave request submitted", fmt.Sprintf("Your %s is pending review.", period)
	case leave.EventApproved:
		body = fmt.Sprintf("Your %s has been approved.", period)
		if event.Notes != "" {
			body += "\n\nNotes: " + event.Notes
		}
		return TypeLeaveApproved, "Leave request approved", body
	case leave.EventDenied:
		return TypeLeaveDenied, "Leave request denied", fmt.Sprintf("Your %s was denied.\n\nReason: %s", period, event.Notes)
	case leave.EventCancelled:
		return TypeLeaveCancelled, "Leave request cancelled", fmt.Sprintf("Your %s has been cancelled.", period)
	}
	return "", "", ""
}

var _ leave.Publisher = (*Service)(nil)
