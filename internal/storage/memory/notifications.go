package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"workforce/internal/domain/notifications"
)

type NotificationStore struct {
	mu    sync.Mutex
	items []notifications.Notification
	now   func() time.Time
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{now: time.Now}
}

func (m *NotificationStore) CreateNotification(_ context.Context, n notifications.Notification) (notifications.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = m.now()
	n.ReadAt = nil
	m.items = append(m.items, n)
	return n, nil
}

func (m *NotificationStore) ListNotifications(_ context.Context, employeeID string, limit, offset int) ([]notifications.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []notifications.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].EmployeeID == employeeID {
			matched = append(matched, m.items[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	out := []notifications.Notification{}
	if offset >= len(matched) {
		return out, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append(out, matched[offset:end]...), nil
}

func (m *NotificationStore) CountNotifications(_ context.Context, employeeID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, unread int
	for _, n := range m.items {
		if n.EmployeeID != employeeID {
			continue
		}
		total++
		if n.ReadAt == nil {
			unread++
		}
	}
	return total, unread, nil
}

func (m *NotificationStore) MarkRead(_ context.Context, employeeID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		n := &m.items[i]
		if n.ID != notificationID || n.EmployeeID != employeeID {
			continue
		}
		if n.ReadAt == nil {
			at := m.now()
			n.ReadAt = &at
		}
		return nil
	}
	return notifications.ErrNotFound
}

var _ notifications.StoreAPI = (*NotificationStore)(nil)
