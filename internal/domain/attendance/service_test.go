package attendance_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/attendance"
	"workforce/internal/domain/core"
	"workforce/internal/platform/clock"
	"workforce/internal/storage/memory"
)

type importFixture struct {
	svc   *attendance.Service
	store *memory.AttendanceStore
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	dir := memory.NewDirectory()
	dir.AddEmployee(core.Employee{ID: "emp-juan", FirstName: "Juan", MiddleName: "Santos", LastName: "Dela Cruz", Role: "agent", Active: true})
	dir.AddEmployee(core.Employee{ID: "emp-maria", FirstName: "Maria", LastName: "Reyes", Role: "agent", Active: true})
	dir.AddEmployee(core.Employee{ID: "emp-gone", FirstName: "Pedro", LastName: "Penduko", Role: "agent", Active: false})
	dir.AddSchedule(core.Schedule{
		EmployeeID:    "emp-juan",
		EffectiveFrom: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		TimeIn:        8 * time.Hour,
		TimeOut:       17 * time.Hour,
	})

	store := memory.NewAttendanceStore()
	clk := clock.NewFixed(time.Date(2025, time.March, 8, 10, 0, 0, 0, time.UTC))
	return &importFixture{svc: attendance.NewService(store, dir, clk, time.UTC), store: store}
}

func exportFile(rows ...string) []byte {
	var b strings.Builder
	b.WriteString("No\tDevNo\tUserId\tName\tMode\tDateTime\n")
	for _, r := range rows {
		b.WriteString(r)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func marchInput(data []byte) attendance.ImportInput {
	return attendance.ImportInput{
		FileName:   "march.txt",
		Data:       data,
		SiteID:     "main",
		DateFrom:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		DateTo:     time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC),
		UploadedBy: "hr-1",
	}
}

var firstWeek = exportFile(
	"1\t1\t100\tJuan Dela Cruz\t0\t2025-03-03 07:55:00",
	"2\t1\t100\tDELA CRUZ, JUAN S.\t1\t2025-03-03 17:05:00",
	"3\t1\t101\tMaria Reyes\t0\t2025-03-03 08:30:00",
	"4\t1\t102\tPedro Penduko\t0\t2025-03-03 08:00:00",
	"5\t1\t102\tpedro  penduko\t1\t2025-03-03 17:00:00",
	"6\t1\t100\tJuan Dela Cruz\t0\t2025-03-10 08:00:00",
	"7\tbad row",
)

func TestImportBuildsDaysAndCounts(t *testing.T) {
	// GIVEN a week export with one inactive employee and one malformed row
	f := newImportFixture(t)
	ctx := context.Background()

	// WHEN it is imported
	upload, err := f.svc.Import(ctx, marchInput(firstWeek))
	require.NoError(t, err)

	// THEN counts, warnings and days reflect the file
	assert.Equal(t, attendance.UploadCompleted, upload.Status)
	assert.Equal(t, 7, upload.TotalRecords)
	assert.Equal(t, 3, upload.MatchedRecords)
	assert.Equal(t, 2, upload.UnmatchedRecords)
	assert.Equal(t, 2, upload.SkippedRecords)
	assert.Equal(t, 2, upload.DaysUpserted)
	assert.Equal(t, []string{"Pedro Penduko"}, upload.UnmatchedNames)
	require.Len(t, upload.Warnings, 1)
	assert.Equal(t, 2, upload.Warnings[0].Scans)
	require.NotNil(t, upload.ProcessedAt)
	assert.Equal(t, 3, f.store.ScanCount())

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	juan, err := f.svc.Days(ctx, "emp-juan", from, to)
	require.NoError(t, err)
	require.Len(t, juan, 1)
	assert.Equal(t, attendance.DayPresent, juan[0].Status)
	assert.Equal(t, time.Date(2025, time.March, 3, 7, 55, 0, 0, time.UTC), *juan[0].ActualTimeIn)
	assert.Equal(t, time.Date(2025, time.March, 3, 17, 5, 0, 0, time.UTC), *juan[0].ActualTimeOut)
	assert.Equal(t, "main", juan[0].BioInSiteID)
	assert.Equal(t, upload.ID, juan[0].UploadID)

	maria, err := f.svc.Days(ctx, "emp-maria", from, to)
	require.NoError(t, err)
	require.Len(t, maria, 1)
	assert.Equal(t, attendance.DayNeedsManualReview, maria[0].Status)
	assert.Nil(t, maria[0].ActualTimeOut)

	stored, err := f.svc.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.UploadCompleted, stored.Status)
	assert.Equal(t, []string{"Pedro Penduko"}, stored.UnmatchedNames)
}

func TestImportReimportIsIdempotent(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, marchInput(firstWeek))
	require.NoError(t, err)
	second, err := f.svc.Import(ctx, marchInput(firstWeek))
	require.NoError(t, err)

	assert.Equal(t, attendance.UploadCompleted, second.Status)
	assert.Equal(t, 3, f.store.ScanCount())

	days, err := f.svc.Days(ctx, "emp-juan", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, time.Date(2025, time.March, 3, 17, 5, 0, 0, time.UTC), *days[0].ActualTimeOut)
}

func TestImportRecomputesDayFromAllStoredScans(t *testing.T) {
	// GIVEN a day already imported with time-out 17:05
	f := newImportFixture(t)
	ctx := context.Background()
	_, err := f.svc.Import(ctx, marchInput(firstWeek))
	require.NoError(t, err)

	// WHEN a second file adds a 16:58 scan from another device
	_, err = f.svc.Import(ctx, marchInput(exportFile(
		"1\t2\t100\tJuan Dela Cruz\t1\t2025-03-03 16:58:00",
	)))
	require.NoError(t, err)

	// THEN the day keeps 07:55 in and picks the scan closest to 17:00
	days, err := f.svc.Days(ctx, "emp-juan", time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, time.Date(2025, time.March, 3, 7, 55, 0, 0, time.UTC), *days[0].ActualTimeIn)
	assert.Equal(t, time.Date(2025, time.March, 3, 16, 58, 0, 0, time.UTC), *days[0].ActualTimeOut)
}

func TestImportMalformedFileMarksUploadFailed(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	upload, err := f.svc.Import(ctx, marchInput([]byte("this is not an export\n")))
	require.NoError(t, err)
	assert.Equal(t, attendance.UploadFailed, upload.Status)
	assert.Contains(t, upload.ErrorMessage, "line 1")
	assert.Equal(t, 0, f.store.ScanCount())

	stored, err := f.svc.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.UploadFailed, stored.Status)
}

func TestImportEmptyFileCompletes(t *testing.T) {
	f := newImportFixture(t)

	upload, err := f.svc.Import(context.Background(), marchInput(nil))
	require.NoError(t, err)
	assert.Equal(t, attendance.UploadCompleted, upload.Status)
	assert.Equal(t, 0, upload.TotalRecords)
	assert.Empty(t, upload.UnmatchedNames)
}

func TestImportValidation(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	missingSite := marchInput(firstWeek)
	missingSite.SiteID = " "
	_, err := f.svc.Import(ctx, missingSite)
	assert.ErrorIs(t, err, attendance.ErrValidation)

	reversed := marchInput(firstWeek)
	reversed.DateFrom, reversed.DateTo = reversed.DateTo, reversed.DateFrom
	_, err = f.svc.Import(ctx, reversed)
	assert.ErrorIs(t, err, attendance.ErrValidation)

	_, err = f.svc.Days(ctx, "", time.Now(), time.Now())
	assert.ErrorIs(t, err, attendance.ErrValidation)
}

func TestGetUnknownUpload(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, attendance.ErrUploadNotFound)
}

func TestImportObserverSeesFinishedUploads(t *testing.T) {
	f := newImportFixture(t)
	var seen []attendance.UploadStatus
	f.svc.OnImport = func(u attendance.Upload) { seen = append(seen, u.Status) }

	_, err := f.svc.Import(context.Background(), marchInput(firstWeek))
	require.NoError(t, err)
	_, err = f.svc.Import(context.Background(), marchInput([]byte("garbage")))
	require.NoError(t, err)

	assert.Equal(t, []attendance.UploadStatus{attendance.UploadCompleted, attendance.UploadFailed}, seen)
}

func TestReportRendersPDF(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	upload, err := f.svc.Import(ctx, marchInput(firstWeek))
	require.NoError(t, err)

	pdf, err := f.svc.Report(ctx, upload.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}
