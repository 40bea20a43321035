package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"workforce/internal/domain/attendance"
)

type scanKey struct {
	employeeID string
	siteID     string
	at         int64
	deviceNo   string
}

type dayKey struct {
	employeeID string
	date       string
}

// AttendanceStore is an in-memory attendance.Store with the same
// uniqueness rules as the biometric_records and attendance_days tables.
type AttendanceStore struct {
	mu    sync.Mutex
	state attendanceState
}

type attendanceState struct {
	uploads map[string]attendance.Upload
	scans   map[scanKey]attendance.ScanRecord
	days    map[dayKey]attendance.Day
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{state: attendanceState{
		uploads: make(map[string]attendance.Upload),
		scans:   make(map[scanKey]attendance.ScanRecord),
		days:    make(map[dayKey]attendance.Day),
	}}
}

func (m *AttendanceStore) WithTx(_ context.Context, fn func(attendance.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&attendanceTx{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *AttendanceStore) CreateUpload(_ context.Context, u attendance.Upload) (attendance.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createUpload(u), nil
}

func (m *AttendanceStore) UpdateUpload(_ context.Context, u attendance.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateUpload(u)
}

func (m *AttendanceStore) GetUpload(_ context.Context, uploadID string) (attendance.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getUpload(uploadID)
}

func (m *AttendanceStore) InsertScan(_ context.Context, scan attendance.ScanRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertScan(scan), nil
}

func (m *AttendanceStore) ScansBetween(_ context.Context, employeeID string, from, to time.Time) ([]attendance.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.scansBetween(employeeID, from, to), nil
}

func (m *AttendanceStore) UpsertDay(_ context.Context, day attendance.Day) (attendance.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.upsertDay(day), nil
}

func (m *AttendanceStore) ListDays(_ context.Context, employeeID string, from, to time.Time) ([]attendance.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listDays(employeeID, from, to), nil
}

// ScanCount reports how many scans are stored.
func (m *AttendanceStore) ScanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.scans)
}

type attendanceTx struct {
	state *attendanceState
}

func (t *attendanceTx) WithTx(_ context.Context, fn func(attendance.Store) error) error {
	return fn(t)
}

func (t *attendanceTx) CreateUpload(_ context.Context, u attendance.Upload) (attendance.Upload, error) {
	return t.state.createUpload(u), nil
}

func (t *attendanceTx) UpdateUpload(_ context.Context, u attendance.Upload) error {
	return t.state.updateUpload(u)
}

func (t *attendanceTx) GetUpload(_ context.Context, uploadID string) (attendance.Upload, error) {
	return t.state.getUpload(uploadID)
}

func (t *attendanceTx) InsertScan(_ context.Context, scan attendance.ScanRecord) (bool, error) {
	return t.state.insertScan(scan), nil
}

func (t *attendanceTx) ScansBetween(_ context.Context, employeeID string, from, to time.Time) ([]attendance.ScanRecord, error) {
	return t.state.scansBetween(employeeID, from, to), nil
}

func (t *attendanceTx) UpsertDay(_ context.Context, day attendance.Day) (attendance.Day, error) {
	return t.state.upsertDay(day), nil
}

func (t *attendanceTx) ListDays(_ context.Context, employeeID string, from, to time.Time) ([]attendance.Day, error) {
	return t.state.listDays(employeeID, from, to), nil
}

func (s *attendanceState) clone() attendanceState {
	out := attendanceState{
		uploads: make(map[string]attendance.Upload, len(s.uploads)),
		scans:   make(map[scanKey]attendance.ScanRecord, len(s.scans)),
		days:    make(map[dayKey]attendance.Day, len(s.days)),
	}
	for k, v := range s.uploads {
		out.uploads[k] = v
	}
	for k, v := range s.scans {
		out.scans[k] = v
	}
	for k, v := range s.days {
		out.days[k] = v
	}
	return out
}

func (s *attendanceState) createUpload(u attendance.Upload) attendance.Upload {
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.Warnings = nil
	s.uploads[u.ID] = u
	return u
}

func (s *attendanceState) updateUpload(u attendance.Upload) error {
	if _, ok := s.uploads[u.ID]; !ok {
		return attendance.ErrUploadNotFound
	}
	u.Warnings = nil
	u.UnmatchedNames = append([]string(nil), u.UnmatchedNames...)
	s.uploads[u.ID] = u
	return nil
}

func (s *attendanceState) getUpload(uploadID string) (attendance.Upload, error) {
	u, ok := s.uploads[uploadID]
	if !ok {
		return attendance.Upload{}, attendance.ErrUploadNotFound
	}
	if u.UnmatchedNames == nil {
		u.UnmatchedNames = []string{}
	}
	return u, nil
}

func (s *attendanceState) insertScan(scan attendance.ScanRecord) bool {
	key := scanKey{employeeID: scan.EmployeeID, siteID: scan.SiteID, at: scan.ScanAt.UnixNano(), deviceNo: scan.DeviceNo}
	if _, ok := s.scans[key]; ok {
		return false
	}
	scan.ID = uuid.NewString()
	s.scans[key] = scan
	return true
}

func (s *attendanceState) scansBetween(employeeID string, from, to time.Time) []attendance.ScanRecord {
	var out []attendance.ScanRecord
	for _, scan := range s.scans {
		if scan.EmployeeID != employeeID || scan.ScanAt.Before(from) || !scan.ScanAt.Before(to) {
			continue
		}
		out = append(out, scan)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScanAt.Equal(out[j].ScanAt) {
			return out[i].ScanAt.Before(out[j].ScanAt)
		}
		return out[i].DeviceNo < out[j].DeviceNo
	})
	return out
}

func (s *attendanceState) upsertDay(day attendance.Day) attendance.Day {
	key := dayKey{employeeID: day.EmployeeID, date: day.ShiftDate.Format(time.DateOnly)}
	if existing, ok := s.days[key]; ok {
		day.ID = existing.ID
	} else {
		day.ID = uuid.NewString()
	}
	s.days[key] = day
	return day
}

func (s *attendanceState) listDays(employeeID string, from, to time.Time) []attendance.Day {
	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	var out []attendance.Day
	for key, day := range s.days {
		if key.employeeID == employeeID && key.date >= lo && key.date <= hi {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShiftDate.Before(out[j].ShiftDate) })
	return out
}

var _ attendance.Store = (*AttendanceStore)(nil)
