package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/leave"
)

type ledgerKey struct {
	employeeID string
	year       int
	month      time.Month
}

// LeaveStore is an in-memory leave.Store. WithTx holds the store lock for
// the whole callback and restores a snapshot when it fails.
type LeaveStore struct {
	mu    sync.Mutex
	state leaveState
}

type leaveState struct {
	ledger    map[string]leave.LedgerEntry
	ledgerIdx map[ledgerKey]string
	requests  map[string]leave.LeaveRequest
	events    []leave.RequestEvent
}

func NewLeaveStore() *LeaveStore {
	return &LeaveStore{state: leaveState{
		ledger:    make(map[string]leave.LedgerEntry),
		ledgerIdx: make(map[ledgerKey]string),
		requests:  make(map[string]leave.LeaveRequest),
	}}
}

func (m *LeaveStore) WithTx(_ context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&leaveTx{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *LeaveStore) InsertLedgerEntry(ctx context.Context, entry leave.LedgerEntry) (leave.LedgerEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertLedgerEntry(entry)
}

func (m *LeaveStore) LedgerEntries(_ context.Context, employeeID string, year int) ([]leave.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ledgerEntries(employeeID, year), nil
}

func (m *LeaveStore) LockLedgerEntries(ctx context.Context, employeeID string, year int) ([]leave.LedgerEntry, error) {
	return m.LedgerEntries(ctx, employeeID, year)
}

func (m *LeaveStore) UpdateLedgerUsage(_ context.Context, entryID string, used, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateLedgerUsage(entryID, used, balance)
}

func (m *LeaveStore) SumBalance(_ context.Context, employeeID string, year int) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.sumBalance(employeeID, year), nil
}

func (m *LeaveStore) CreateRequest(_ context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createRequest(req), nil
}

func (m *LeaveStore) GetRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getRequest(requestID)
}

func (m *LeaveStore) LockRequest(ctx context.Context, requestID string) (leave.LeaveRequest, error) {
	return m.GetRequest(ctx, requestID)
}

func (m *LeaveStore) UpdateRequest(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateRequest(req)
}

func (m *LeaveStore) ListRequests(_ context.Context, employeeID string, limit, offset int) (leave.RequestListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listRequests(employeeID, limit, offset), nil
}

func (m *LeaveStore) InsertEvent(_ context.Context, event leave.RequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.insertEvent(event)
	return nil
}

func (m *LeaveStore) ListEvents(_ context.Context, requestID string) ([]leave.RequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listEvents(requestID), nil
}

// leaveTx is the view handed to WithTx callbacks; the lock is already held.
type leaveTx struct {
	state *leaveState
}

func (t *leaveTx) WithTx(_ context.Context, fn func(leave.Store) error) error {
	return fn(t)
}

func (t *leaveTx) InsertLedgerEntry(_ context.Context, entry leave.LedgerEntry) (leave.LedgerEntry, bool, error) {
	return t.state.insertLedgerEntry(entry)
}

func (t *leaveTx) LedgerEntries(_ context.Context, employeeID string, year int) ([]leave.LedgerEntry, error) {
	return t.state.ledgerEntries(employeeID, year), nil
}

func (t *leaveTx) LockLedgerEntries(_ context.Context, employeeID string, year int) ([]leave.LedgerEntry, error) {
	return t.state.ledgerEntries(employeeID, year), nil
}

func (t *leaveTx) UpdateLedgerUsage(_ context.Context, entryID string, used, balance decimal.Decimal) error {
	return t.state.updateLedgerUsage(entryID, used, balance)
}

func (t *leaveTx) SumBalance(_ context.Context, employeeID string, year int) (decimal.Decimal, error) {
	return t.state.sumBalance(employeeID, year), nil
}

func (t *leaveTx) CreateRequest(_ context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	return t.state.createRequest(req), nil
}

func (t *leaveTx) GetRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	return t.state.getRequest(requestID)
}

func (t *leaveTx) LockRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	return t.state.getRequest(requestID)
}

func (t *leaveTx) UpdateRequest(_ context.Context, req leave.LeaveRequest) error {
	return t.state.updateRequest(req)
}

func (t *leaveTx) ListRequests(_ context.Context, employeeID string, limit, offset int) (leave.RequestListResult, error) {
	return t.state.listRequests(employeeID, limit, offset), nil
}

func (t *leaveTx) InsertEvent(_ context.Context, event leave.RequestEvent) error {
	t.state.insertEvent(event)
	return nil
}

func (t *leaveTx) ListEvents(_ context.Context, requestID string) ([]leave.RequestEvent, error) {
	return t.state.listEvents(requestID), nil
}

func (s *leaveState) clone() leaveState {
	out := leaveState{
		ledger:    make(map[string]leave.LedgerEntry, len(s.ledger)),
		ledgerIdx: make(map[ledgerKey]string, len(s.ledgerIdx)),
		requests:  make(map[string]leave.LeaveRequest, len(s.requests)),
		events:    append([]leave.RequestEvent(nil), s.events...),
	}
	for k, v := range s.ledger {
		out.ledger[k] = v
	}
	for k, v := range s.ledgerIdx {
		out.ledgerIdx[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	return out
}

func (s *leaveState) insertLedgerEntry(entry leave.LedgerEntry) (leave.LedgerEntry, bool, error) {
	key := ledgerKey{employeeID: entry.EmployeeID, year: entry.Year, month: entry.Month}
	if id, ok := s.ledgerIdx[key]; ok {
		return s.ledger[id], false, nil
	}
	if entry.CreditsBalance.IsNegative() || entry.CreditsBalance.GreaterThan(entry.CreditsEarned) {
		return leave.LedgerEntry{}, false, fmt.Errorf("ledger balance %s outside [0, %s]", entry.CreditsBalance, entry.CreditsEarned)
	}
	now := time.Now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.ledger[entry.ID] = entry
	s.ledgerIdx[key] = entry.ID
	return entry, true, nil
}

func (s *leaveState) ledgerEntries(employeeID string, year int) []leave.LedgerEntry {
	out := make([]leave.LedgerEntry, 0)
	for _, entry := range s.ledger {
		if entry.EmployeeID == employeeID && entry.Year == year {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// updateLedgerUsage enforces the same invariants as the table's CHECK
// constraints.
func (s *leaveState) updateLedgerUsage(entryID string, used, balance decimal.Decimal) error {
	entry, ok := s.ledger[entryID]
	if !ok {
		return fmt.Errorf("ledger entry %s not found", entryID)
	}
	if used.IsNegative() || balance.IsNegative() || balance.GreaterThan(entry.CreditsEarned) || !entry.CreditsEarned.Sub(used).Equal(balance) {
		return fmt.Errorf("ledger entry %s: used %s balance %s violates earned %s", entryID, used, balance, entry.CreditsEarned)
	}
	entry.CreditsUsed = used
	entry.CreditsBalance = balance
	entry.UpdatedAt = time.Now()
	s.ledger[entryID] = entry
	return nil
}

func (s *leaveState) sumBalance(employeeID string, year int) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range s.ledger {
		if entry.EmployeeID == employeeID && entry.Year == year {
			total = total.Add(entry.CreditsBalance)
		}
	}
	return total
}

func (s *leaveState) createRequest(req leave.LeaveRequest) leave.LeaveRequest {
	req.ID = uuid.NewString()
	s.requests[req.ID] = req
	return req
}

func (s *leaveState) getRequest(requestID string) (leave.LeaveRequest, error) {
	req, ok := s.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	return req, nil
}

func (s *leaveState) updateRequest(req leave.LeaveRequest) error {
	if _, ok := s.requests[req.ID]; !ok {
		return leave.ErrNotFound
	}
	s.requests[req.ID] = req
	return nil
}

func (s *leaveState) listRequests(employeeID string, limit, offset int) leave.RequestListResult {
	var matched []leave.LeaveRequest
	for _, req := range s.requests {
		if employeeID == "" || req.EmployeeID == employeeID {
			matched = append(matched, req)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	result := leave.RequestListResult{Requests: []leave.LeaveRequest{}, Total: len(matched)}
	if offset >= len(matched) {
		return result
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	result.Requests = append(result.Requests, matched[offset:end]...)
	return result
}

func (s *leaveState) insertEvent(event leave.RequestEvent) {
	event.ID = uuid.NewString()
	s.events = append(s.events, event)
}

func (s *leaveState) listEvents(requestID string) []leave.RequestEvent {
	out := make([]leave.RequestEvent, 0)
	for _, ev := range s.events {
		if ev.RequestID == requestID {
			out = append(out, ev)
		}
	}
	return out
}

var _ leave.Store = (*LeaveStore)(nil)
