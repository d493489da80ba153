package calendar

import (
	"fmt"
	"strings"
	"time"

	"sharecal/internal/clock"
)

// ViewMode selects the granularity of the visible period.
type ViewMode int

const (
	ModeMonth ViewMode = iota
	ModeWeek
	ModeDay
)

func (m ViewMode) String() string {
	switch m {
	case ModeWeek:
		return "week"
	case ModeDay:
		return "day"
	default:
		return "month"
	}
}

// ParseViewMode accepts "month", "week" or "day" (case-insensitive).
// The empty string selects ModeMonth.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month":
		return ModeMonth, nil
	case "week":
		return ModeWeek, nil
	case "day":
		return ModeDay, nil
	default:
		return ModeMonth, fmt.Errorf("unknown view mode %q", s)
	}
}

// Period is a snapshot of the visible range.
type Period struct {
	Anchor time.Time
	Mode   ViewMode
	Start  time.Time
	End    time.Time
}

// ViewState holds the anchor date and view mode of one interactive
// session. It is not safe for concurrent mutation; use one instance per
// session or request.
type ViewState struct {
	clock  clock.Clock
	anchor time.Time
	mode   ViewMode
}

// NewViewState starts in month mode anchored on today.
func NewViewState(c clock.Clock) *ViewState {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &ViewState{
		clock:  c,
		anchor: DayStart(c.Now()),
		mode:   ModeMonth,
	}
}

func (v *ViewState) Anchor() time.Time { return v.anchor }
func (v *ViewState) Mode() ViewMode    { return v.mode }

// GoToDate re-anchors on d's calendar day; the mode is unchanged.
func (v *ViewState) GoToDate(d time.Time) {
	v.anchor = DayStart(d)
}

func (v *ViewState) GoToToday() {
	v.anchor = DayStart(v.clock.Now())
}

func (v *ViewState) GoToPrevious() {
	v.shift(-1)
}

func (v *ViewState) GoToNext() {
	v.shift(1)
}

func (v *ViewState) shift(dir int) {
	switch v.mode {
	case ModeWeek:
		v.anchor = v.anchor.AddDate(0, 0, 7*dir)
	case ModeDay:
		v.anchor = v.anchor.AddDate(0, 0, dir)
	default:
		v.anchor = AddMonths(v.anchor, dir)
	}
}

// ChangeViewMode switches the mode without moving the anchor.
func (v *ViewState) ChangeViewMode(m ViewMode) {
	v.mode = m
}

func (v *ViewState) PeriodStart() time.Time {
	switch v.mode {
	case ModeWeek:
		return WeekStart(v.anchor)
	case ModeDay:
		return DayStart(v.anchor)
	default:
		return MonthStart(v.anchor)
	}
}

func (v *ViewState) PeriodEnd() time.Time {
	switch v.mode {
	case ModeWeek:
		return WeekEnd(v.anchor)
	case ModeDay:
		return DayEnd(v.anchor)
	default:
		return MonthEnd(v.anchor)
	}
}

func (v *ViewState) Period() Period {
	return Period{
		Anchor: v.anchor,
		Mode:   v.mode,
		Start:  v.PeriodStart(),
		End:    v.PeriodEnd(),
	}
}

// Dates lists the grid dates rendered for the current mode: the padded
// month grid, the seven week days, or the single day.
func (v *ViewState) Dates() []time.Time {
	switch v.mode {
	case ModeWeek:
		return WeekDates(v.anchor)
	case ModeDay:
		return []time.Time{DayStart(v.anchor)}
	default:
		return GenerateMonthGrid(v.anchor.Year(), v.anchor.Month(), v.anchor.Location())
	}
}

// PeriodTitle renders a label for the active period, e.g. "March 2024",
// "March 11 - 17, 2024" or "March 15, 2024".
func (v *ViewState) PeriodTitle() string {
	switch v.mode {
	case ModeWeek:
		return weekTitle(WeekStart(v.anchor), WeekEnd(v.anchor))
	case ModeDay:
		return v.anchor.Format("January 2, 2006")
	default:
		return v.anchor.Format("January 2006")
	}
}

func weekTitle(start, end time.Time) string {
	switch {
	case start.Year() != end.Year():
		return start.Format("January 2, 2006") + " - " + end.Format("January 2, 2006")
	case start.Month() != end.Month():
		return start.Format("January 2") + " - " + end.Format("January 2, 2006")
	default:
		return fmt.Sprintf("%s %d - %d, %d", start.Month(), start.Day(), end.Day(), start.Year())
	}
}
