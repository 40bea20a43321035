package attendance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const exportColumns = 6

// Accepted DateTime layouts, tried in order.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
}

// RawScan is one data row of a device export.
type RawScan struct {
	Line     int
	No       string
	DeviceNo string
	UserID   string
	Name     string
	Mode     string
	At       time.Time
}

type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ParseResult struct {
	Rows    []RawScan
	Skipped []SkippedRow
}

// Parse reads a tab-delimited export with columns No, DevNo, UserId, Name,
// Mode, DateTime. The first non-empty line must be that header. Bad data rows
// are skipped and reported; only a missing or wrong header is an error.
// Timestamps are read in loc.
func Parse(r io.Reader, loc *time.Location) (ParseResult, error) {
	if loc == nil {
		loc = time.UTC
	}
	var result ParseResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	headerSeen := false
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		cols := splitColumns(text)

		if !headerSeen {
			if len(cols) < exportColumns || !strings.EqualFold(cols[0], "No") {
				return ParseResult{}, &ImportParseError{Line: line, Reason: "expected header No, DevNo, UserId, Name, Mode, DateTime"}
			}
			headerSeen = true
			continue
		}

		row, reason := parseRow(cols, loc)
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		row.Line = line
		result.Rows = append(result.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return ParseResult{}, &ImportParseError{Line: line + 1, Reason: "line too long"}
		}
		return ParseResult{}, fmt.Errorf("read attendance file: %w", err)
	}
	return result, nil
}

func splitColumns(text string) []string {
	cols := strings.Split(text, "\t")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func parseRow(cols []string, loc *time.Location) (RawScan, string) {
	if len(cols) < exportColumns {
		return RawScan{}, fmt.Sprintf("expected %d columns, got %d", exportColumns, len(cols))
	}
	row := RawScan{
		No:       cols[0],
		DeviceNo: cols[1],
		UserID:   cols[2],
		Name:     cols[3],
		Mode:     cols[4],
	}
	if row.Name == "" {
		return RawScan{}, "empty name"
	}
	at, ok := parseDateTime(cols[5], loc)
	if !ok {
		return RawScan{}, fmt.Sprintf("unrecognised date time %q", cols[5])
	}
	row.At = at
	return row, ""
}

func parseDateTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.Join(strings.Fields(value), " ")
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
