package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name      string
		in        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"monday", date(2024, 3, 11), date(2024, 3, 11), date(2024, 3, 17)},
		{"midweek with time", time.Date(2024, 3, 13, 18, 30, 0, 0, time.UTC), date(2024, 3, 11), date(2024, 3, 17)},
		{"sunday", date(2024, 3, 17), date(2024, 3, 11), date(2024, 3, 17)},
		{"year boundary", date(2024, 12, 30), date(2024, 12, 30), date(2025, 1, 5)},
		{"new year sunday", date(2023, 1, 1), date(2022, 12, 26), date(2023, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := WeekStart(tt.in)
			end := WeekEnd(tt.in)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, DayEnd(tt.wantEnd), end)
			assert.Equal(t, 23, end.Hour())
			assert.Equal(t, 999*int(time.Millisecond), end.Nanosecond())
		})
	}
}

func TestWeekProperties(t *testing.T) {
	d := date(2023, 12, 20)
	for i := 0; i < 800; i++ {
		cur := d.AddDate(0, 0, i).Add(time.Duration(i%24) * time.Hour)
		start, end := WeekStart(cur), WeekEnd(cur)
		require.False(t, cur.Before(start), cur)
		require.False(t, cur.After(end), cur)
		require.Len(t, daysBetween(start, end), 7, cur)
		require.Equal(t, start, WeekStart(start), "idempotent for %s", cur)
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		in      time.Time
		lastDay int
	}{
		{date(2024, 2, 10), 29},
		{date(2023, 2, 10), 28},
		{date(1900, 2, 1), 28},
		{date(2000, 2, 28), 29},
		{date(2024, 1, 31), 31},
		{date(2024, 4, 30), 30},
		{date(2024, 12, 15), 31},
	}
	for _, tt := range tests {
		start, end := MonthStart(tt.in), MonthEnd(tt.in)
		assert.Equal(t, 1, start.Day(), tt.in)
		assert.Equal(t, tt.in.Month(), start.Month())
		assert.Equal(t, tt.lastDay, end.Day(), tt.in)
		assert.Equal(t, tt.in.Month(), end.Month())
		assert.Equal(t, 0, end.Hour())
	}
}

func TestDayBounds(t *testing.T) {
	in := time.Date(2024, 3, 15, 13, 45, 12, 5, time.UTC)
	assert.Equal(t, date(2024, 3, 15), DayStart(in))
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 999000000, time.UTC), DayEnd(in))
}

func TestGenerateMonthGrid(t *testing.T) {
	grid := GenerateMonthGrid(2024, time.March, time.UTC)
	require.Len(t, grid, 35)
	assert.Equal(t, date(2024, 2, 26), grid[0])
	assert.Equal(t, time.Monday, grid[0].Weekday())
	assert.Equal(t, date(2024, 3, 31), grid[len(grid)-1])
	assert.Equal(t, time.Sunday, grid[len(grid)-1].Weekday())

	// February 2021 starts on Monday and has 28 days: a tight 4-week grid.
	assert.Len(t, GenerateMonthGrid(2021, time.February, time.UTC), 28)
	// September 2024 starts on Sunday: six rows.
	assert.Len(t, GenerateMonthGrid(2024, time.September, time.UTC), 42)
}

func TestGenerateMonthGridProperties(t *testing.T) {
	for y := 2019; y <= 2026; y++ {
		for m := time.January; m <= time.December; m++ {
			grid := GenerateMonthGrid(y, m, time.UTC)
			require.Zero(t, len(grid)%7, "%d-%d", y, m)
			require.GreaterOrEqual(t, len(grid), 28)
			require.LessOrEqual(t, len(grid), 42)

			seen := map[int]bool{}
			for i, d := range grid {
				if i > 0 {
					require.Equal(t, grid[i-1].AddDate(0, 0, 1), d)
				}
				if d.Month() == m {
					seen[d.Day()] = true
				}
			}
			require.Len(t, seen, MonthEnd(date(y, m, 1)).Day(), "%d-%d", y, m)
		}
	}
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2024, 2, 29), AddMonths(date(2024, 1, 31), 1))
	assert.Equal(t, date(2023, 2, 28), AddMonths(date(2023, 1, 31), 1))
	assert.Equal(t, date(2024, 4, 30), AddMonths(date(2024, 3, 31), 1))
	assert.Equal(t, date(2024, 2, 29), AddMonths(date(2024, 3, 31), -1))
	assert.Equal(t, date(2025, 1, 15), AddMonths(date(2024, 12, 15), 1))
	assert.Equal(t, date(2023, 12, 15), AddMonths(date(2024, 1, 15), -1))
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsSameDay(a, a.Add(23*time.Hour+59*time.Minute)))
	assert.False(t, IsSameDay(a, a.Add(24*time.Hour)))
	assert.False(t, IsSameDay(a, a.Add(-time.Nanosecond)))
	assert.True(t, IsToday(time.Now()))
	assert.True(t, IsTodayAt(a.Add(5*time.Hour), a))
	assert.False(t, IsTodayAt(a.AddDate(0, 0, 1), a))
}
