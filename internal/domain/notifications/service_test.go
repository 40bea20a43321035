package notifications_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/core"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/notifications"
	"workforce/internal/storage/memory"
)

type sentMail struct {
	from, to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, from, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{from, to, subject, body})
	return m.err
}

func newService(mailer notifications.Mailer) (*notifications.Service, *memory.Directory) {
	dir := memory.NewDirectory()
	dir.AddEmployee(core.Employee{ID: "emp-1", FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@example.com", Role: "agent", Active: true})
	dir.AddEmployee(core.Employee{ID: "emp-2", FirstName: "Maria", LastName: "Reyes", Role: "agent", Active: true})
	return notifications.New(memory.NewNotificationStore(), dir, mailer, "hr@example.com"), dir
}

func approvedEvent() leave.Event {
	return leave.Event{
		Type: leave.EventApproved,
		Request: leave.LeaveRequest{
			ID:            "req-1",
			EmployeeID:    "emp-1",
			LeaveType:     leave.LeaveType("VL"),
			StartDate:     time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC),
			EndDate:       time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC),
			DaysRequested: decimal.NewFromInt(2),
		},
		ActorID: "mgr-1",
		Notes:   "enjoy",
	}
}

func TestPublishStoresAndMails(t *testing.T) {
	mailer := &fakeMailer{}
	svc, _ := newService(mailer)
	ctx := context.Background()

	svc.Publish(ctx, approvedEvent())

	list, err := svc.List(ctx, "emp-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Unread)
	n := list.Notifications[0]
	assert.Equal(t, notifications.TypeLeaveApproved, n.Type)
	assert.Equal(t, "Leave request approved", n.Title)
	assert.Contains(t, n.Body, "VL leave from 2025-06-16 to 2025-06-17 (2 days)")
	assert.Contains(t, n.Body, "Notes: enjoy")

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "hr@example.com", mailer.sent[0].from)
	assert.Equal(t, "juan@example.com", mailer.sent[0].to)
	assert.Equal(t, n.Title, mailer.sent[0].subject)
}

func TestCreateNoEmailAddressSkipsMail(t *testing.T) {
	mailer := &fakeMailer{}
	svc, _ := newService(mailer)

	_, err := svc.Create(context.Background(), "emp-2", notifications.TypeLeaveSubmitted, "t", "b")
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestCreateMailFailureIsNotReturned(t *testing.T) {
	svc, _ := newService(&fakeMailer{err: errors.New("smtp down")})

	n, err := svc.Create(context.Background(), "emp-1", notifications.TypeLeaveSubmitted, "t", "b")
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
}

func TestPublishEveryLeaveEventHasAMessage(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	want := map[leave.EventType]string{
		leave.EventSubmitted: notifications.TypeLeaveSubmitted,
		leave.EventApproved:  notifications.TypeLeaveApproved,
		leave.EventDenied:    notifications.TypeLeaveDenied,
		leave.EventCancelled: notifications.TypeLeaveCancelled,
	}
	for eventType := range want {
		ev := approvedEvent()
		ev.Type = eventType
		svc.Publish(ctx, ev)
	}

	list, err := svc.List(ctx, "emp-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 4)
	got := map[string]bool{}
	for _, n := range list.Notifications {
		got[n.Type] = true
	}
	for _, ntype := range want {
		assert.True(t, got[ntype], ntype)
	}
}

func TestMarkRead(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	n, err := svc.Create(ctx, "emp-1", notifications.TypeLeaveSubmitted, "t", "b")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, "emp-2", n.ID), notifications.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, "emp-1", n.ID))
	require.NoError(t, svc.MarkRead(ctx, "emp-1", n.ID))

	list, err := svc.List(ctx, "emp-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Unread)
	assert.NotNil(t, list.Notifications[0].ReadAt)
}
