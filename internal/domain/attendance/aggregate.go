package attendance

import (
	"sort"
	"time"

	"workforce/internal/domain/core"
)

// Aggregate derives one shift's attendance from its scans. Time-in is the
// earliest scan. Time-out is the later scan closest to the scheduled
// time-out, the earlier one winning a tie. Without a schedule the latest
// scan is used and the day is flagged for manual review.
func Aggregate(shiftDate time.Time, scans []Scan, schedule *core.Schedule) Day {
	day := Day{
		ShiftDate: time.Date(shiftDate.Year(), shiftDate.Month(), shiftDate.Day(), 0, 0, 0, 0, shiftDate.Location()),
		Status:    DayIncomplete,
	}

	var schedIn, schedOut time.Time
	if schedule != nil {
		schedIn, schedOut = schedule.On(day.ShiftDate)
		day.ScheduledTimeIn = &schedIn
		day.ScheduledTimeOut = &schedOut
	}

	if len(scans) == 0 {
		if schedule == nil {
			day.Status = DayNeedsManualReview
		}
		return day
	}

	sorted := make([]Scan, len(scans))
	copy(sorted, scans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	in := sorted[0]
	day.ActualTimeIn = &in.At
	day.BioInSiteID = in.SiteID

	var out *Scan
	for i := range sorted {
		s := &sorted[i]
		if !s.At.After(in.At) {
			continue
		}
		if schedule == nil {
			out = s
			continue
		}
		if out == nil || absDuration(s.At.Sub(schedOut)) < absDuration(out.At.Sub(schedOut)) {
			out = s
		}
	}
	if out != nil {
		at := out.At
		day.ActualTimeOut = &at
		day.BioOutSiteID = out.SiteID
	}

	switch {
	case schedule == nil:
		day.Status = DayNeedsManualReview
	case day.ActualTimeOut == nil:
		day.Status = DayIncomplete
	case in.At.After(schedIn):
		day.Status = DayLate
	default:
		day.Status = DayPresent
	}
	return day
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
