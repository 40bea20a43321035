package attendance

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadsRowsAndSkipsMalformed(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	input := "\ufeffNo\tDevNo\tUserId\tName\tMode\tDateTime\r\n" +
		"1\t1\t100\tJuan Dela Cruz\t0\t2025-03-03 07:55:00\r\n" +
		"\r\n" +
		"2\t1\t100\tJuan Dela Cruz\t1\t03/03/2025 17:05:00\r\n" +
		"3\t2\t101\tMaria Reyes\t0\t3/3/2025 8:30 AM\r\n" +
		"4\t2\t102\t\t0\t2025-03-03 08:00\r\n" +
		"5\t2\t103\tPedro\t0\tyesterday\r\n" +
		"6\t2\n"

	result, err := Parse(strings.NewReader(input), loc)
	require.NoError(t, err)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, []int{2, 4, 5}, []int{result.Rows[0].Line, result.Rows[1].Line, result.Rows[2].Line})
	assert.Equal(t, "Juan Dela Cruz", result.Rows[0].Name)
	assert.Equal(t, "1", result.Rows[0].DeviceNo)
	assert.True(t, result.Rows[0].At.Equal(time.Date(2025, time.March, 3, 7, 55, 0, 0, loc)))
	assert.True(t, result.Rows[1].At.Equal(time.Date(2025, time.March, 3, 17, 5, 0, 0, loc)))
	assert.True(t, result.Rows[2].At.Equal(time.Date(2025, time.March, 3, 8, 30, 0, 0, loc)))

	require.Len(t, result.Skipped, 3)
	assert.Equal(t, 6, result.Skipped[0].Line)
	assert.Equal(t, "empty name", result.Skipped[0].Reason)
	assert.Equal(t, 7, result.Skipped[1].Line)
	assert.Contains(t, result.Skipped[1].Reason, "yesterday")
	assert.Equal(t, 8, result.Skipped[2].Line)
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n\n", "\r\n"} {
		result, err := Parse(strings.NewReader(input), time.UTC)
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Empty(t, result.Skipped)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	result, err := Parse(strings.NewReader("no\tdevno\tuserid\tname\tmode\tdatetime\n"), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestParseMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("1\t1\t100\tJuan\t0\t2025-03-03 07:55:00\n"), time.UTC)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImportParse))

	var parseErr *ImportParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 1, parseErr.Line)
}

func TestParseCommaSeparatedIsRejected(t *testing.T) {
	_, err := Parse(strings.NewReader("No,DevNo,UserId,Name,Mode,DateTime\n"), time.UTC)
	assert.ErrorIs(t, err, ErrImportParse)
}

func TestParseSlashDatesWithOrWithoutPadding(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"3/5/2025 08:00:15", time.Date(2025, time.March, 5, 8, 0, 15, 0, time.UTC)},
		{"03/05/2025 08:00:15", time.Date(2025, time.March, 5, 8, 0, 15, 0, time.UTC)},
		{"3/5/2025 08:00", time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)},
		{"03/05/2025 08:00", time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)},
		{"12/31/2025 23:59:59", time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			input := "No\tDevNo\tUserId\tName\tMode\tDateTime\n1\t1\t100\tJuan\t0\t" + tt.raw + "\n"
			result, err := Parse(strings.NewReader(input), time.UTC)
			require.NoError(t, err)
			assert.Empty(t, result.Skipped)
			require.Len(t, result.Rows, 1)
			assert.True(t, tt.want.Equal(result.Rows[0].At), "got %s", result.Rows[0].At)
		})
	}
}
