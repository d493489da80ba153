package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharecal/internal/clock"
)

func newTestView(now time.Time) *ViewState {
	return NewViewState(clock.NewFixed(now))
}

func assertInvariant(t *testing.T, v *ViewState) {
	t.Helper()
	assert.False(t, v.Anchor().Before(v.PeriodStart()), "anchor before period start")
	assert.False(t, v.Anchor().After(v.PeriodEnd()), "anchor after period end")
}

func TestViewStateDefaults(t *testing.T) {
	v := newTestView(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, ModeMonth, v.Mode())
	assert.Equal(t, date(2024, 3, 15), v.Anchor())
	assertInvariant(t, v)
}

func TestViewStateMonthPeriod(t *testing.T) {
	v := newTestView(date(2024, 3, 15))
	assert.Equal(t, date(2024, 3, 1), v.PeriodStart())
	assert.Equal(t, date(2024, 3, 31), v.PeriodEnd())
	assert.Equal(t, "March 2024", v.PeriodTitle())
	assert.Len(t, v.Dates(), 35)
}

func TestViewStateWeekAcrossYear(t *testing.T) {
	v := newTestView(date(2024, 12, 30))
	v.ChangeViewMode(ModeWeek)
	assert.Equal(t, date(2024, 12, 30), v.PeriodStart())
	assert.Equal(t, DayEnd(date(2025, 1, 5)), v.PeriodEnd())
	assert.Equal(t, "December 30, 2024 - January 5, 2025", v.PeriodTitle())
	assert.Len(t, v.Dates(), 7)
	assertInvariant(t, v)
}

func TestViewStateWeekTitles(t *testing.T) {
	v := newTestView(date(2024, 3, 13))
	v.ChangeViewMode(ModeWeek)
	assert.Equal(t, "March 11 - 17, 2024", v.PeriodTitle())

	v.GoToDate(date(2024, 4, 2))
	assert.Equal(t, "April 1 - 7, 2024", v.PeriodTitle())

	v.GoToDate(date(2024, 3, 27))
	assert.Equal(t, "March 25 - 31, 2024", v.PeriodTitle())

	v.GoToDate(date(2024, 4, 29))
	assert.Equal(t, "April 29 - May 5, 2024", v.PeriodTitle())
}

func TestViewStateDayTitle(t *testing.T) {
	v := newTestView(date(2024, 3, 15))
	v.ChangeViewMode(ModeDay)
	assert.Equal(t, "March 15, 2024", v.PeriodTitle())
	assert.Equal(t, date(2024, 3, 15), v.PeriodStart())
	assert.Equal(t, DayEnd(date(2024, 3, 15)), v.PeriodEnd())
	require.Len(t, v.Dates(), 1)
}

func TestViewStateNavigation(t *testing.T) {
	t.Run("month next from jan 31 stays in february", func(t *testing.T) {
		v := newTestView(date(2024, 1, 31))
		v.GoToNext()
		assert.Equal(t, time.February, v.Anchor().Month())
		assert.Equal(t, date(2024, 2, 29), v.Anchor())
		assertInvariant(t, v)
	})

	t.Run("month previous across year", func(t *testing.T) {
		v := newTestView(date(2024, 1, 10))
		v.GoToPrevious()
		assert.Equal(t, date(2023, 12, 10), v.Anchor())
	})

	t.Run("week steps seven days", func(t *testing.T) {
		v := newTestView(date(2024, 12, 30))
		v.ChangeViewMode(ModeWeek)
		v.GoToNext()
		assert.Equal(t, date(2025, 1, 6), v.Anchor())
		v.GoToPrevious()
		v.GoToPrevious()
		assert.Equal(t, date(2024, 12, 23), v.Anchor())
		assertInvariant(t, v)
	})

	t.Run("day steps one day", func(t *testing.T) {
		v := newTestView(date(2024, 2, 28))
		v.ChangeViewMode(ModeDay)
		v.GoToNext()
		assert.Equal(t, date(2024, 2, 29), v.Anchor())
		v.GoToNext()
		assert.Equal(t, date(2024, 3, 1), v.Anchor())
	})

	t.Run("mode switch keeps anchor", func(t *testing.T) {
		v := newTestView(date(2024, 3, 15))
		v.ChangeViewMode(ModeDay)
		assert.Equal(t, date(2024, 3, 15), v.PeriodStart())
		v.ChangeViewMode(ModeWeek)
		assert.Equal(t, date(2024, 3, 15), v.Anchor())
		assert.Equal(t, date(2024, 3, 11), v.PeriodStart())
	})

	t.Run("go to date and today", func(t *testing.T) {
		v := newTestView(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
		v.GoToDate(time.Date(2030, 7, 4, 18, 0, 0, 0, time.UTC))
		assert.Equal(t, date(2030, 7, 4), v.Anchor())
		assert.Equal(t, ModeMonth, v.Mode())
		assertInvariant(t, v)
		v.GoToToday()
		assert.Equal(t, date(2024, 3, 15), v.Anchor())
	})
}

func TestViewStateInvariantAcrossTransitions(t *testing.T) {
	v := newTestView(date(2024, 1, 31))
	modes := []ViewMode{ModeMonth, ModeWeek, ModeDay}
	for i := 0; i < 120; i++ {
		v.ChangeViewMode(modes[i%3])
		if i%5 == 0 {
			v.GoToPrevious()
		} else {
			v.GoToNext()
		}
		assertInvariant(t, v)
	}
}

func TestParseViewMode(t *testing.T) {
	for in, want := range map[string]ViewMode{"": ModeMonth, "Month": ModeMonth, "week": ModeWeek, " DAY ": ModeDay} {
		got, err := ParseViewMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseViewMode("year")
	assert.Error(t, err)
}
