package calendar

import (
	"sort"
	"strconv"
	"time"

	"sharecal/internal/clock"
	"sharecal/internal/model"
)

// DefaultMaxPerCell is the number of events a month cell renders before
// collapsing the rest into an overflow count.
const DefaultMaxPerCell = 3

// HourSlot holds the events occupying one hour of a day view.
type HourSlot struct {
	Hour   int
	Events []model.Event
}

// Cell is one date's slot in a rendered grid.
type Cell struct {
	Date            time.Time
	InCurrentPeriod bool
	Today           bool

	// Events are ordered by start time; equal starts keep input order.
	Events []model.Event

	// Hours is populated for day views only, one slot per hour 0..23.
	Hours []HourSlot

	maxVisible int
}

// Visible returns the events to render as chips. Month cells are capped;
// week and day cells show everything.
func (c Cell) Visible() []model.Event {
	if c.maxVisible > 0 && len(c.Events) > c.maxVisible {
		return c.Events[:c.maxVisible]
	}
	return c.Events
}

// Overflow is the number of events hidden behind the overflow marker.
func (c Cell) Overflow() int {
	if c.maxVisible > 0 && len(c.Events) > c.maxVisible {
		return len(c.Events) - c.maxVisible
	}
	return 0
}

// OverflowLabel renders the overflow marker ("+2"), or "" when nothing is hidden.
func (c Cell) OverflowLabel() string {
	if n := c.Overflow(); n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return ""
}

// Projector buckets events onto grid cells.
type Projector struct {
	clock      clock.Clock
	maxPerCell int
}

// NewProjector returns a projector that caps month cells at maxPerCell
// events (DefaultMaxPerCell when maxPerCell <= 0).
func NewProjector(c clock.Clock, maxPerCell int) *Projector {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	if maxPerCell <= 0 {
		maxPerCell = DefaultMaxPerCell
	}
	return &Projector{clock: c, maxPerCell: maxPerCell}
}

// Project produces one cell per date of the period's grid.
func (p *Projector) Project(events []model.Event, period Period) []Cell {
	var dates []time.Time
	switch period.Mode {
	case ModeWeek:
		dates = WeekDates(period.Anchor)
	case ModeDay:
		dates = []time.Time{DayStart(period.Anchor)}
	default:
		dates = GenerateMonthGrid(period.Anchor.Year(), period.Anchor.Month(), period.Anchor.Location())
	}

	now := p.clock.Now()
	cells := make([]Cell, 0, len(dates))
	for _, d := range dates {
		cell := Cell{
			Date:            d,
			InCurrentPeriod: InCurrentPeriod(d, period.Anchor, period.Mode),
			Today:           IsTodayAt(d, now),
			Events:          EventsForDate(events, d),
		}
		switch period.Mode {
		case ModeMonth:
			cell.maxVisible = p.maxPerCell
		case ModeDay:
			cell.Hours = make([]HourSlot, 0, 24)
			for h := 0; h < 24; h++ {
				cell.Hours = append(cell.Hours, HourSlot{Hour: h, Events: EventsForHour(cell.Events, d, h)})
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// EventsForDate returns the non-deleted events starting on date's calendar
// day, ordered by start time. Ties keep their input order.
func EventsForDate(events []model.Event, date time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Deleted {
			continue
		}
		if IsSameDay(date, ev.Start) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// EventsForHour returns the events on date whose local start hour is <= hour
// and whose local end hour is >= hour. Both ends are inclusive, so an event
// ending exactly at 11:00 still occupies the 11 slot. An event running past
// midnight occupies every hour up to 23. Malformed events (End <= Start)
// never occupy a slot.
func EventsForHour(events []model.Event, date time.Time, hour int) []model.Event {
	out := make([]model.Event, 0)
	dayStart, dayEnd := DayStart(date), DayEnd(date)
	for _, ev := range EventsForDate(events, date) {
		if ev.Malformed() {
			continue
		}
		loc := date.Location()
		startHour := ev.Start.In(loc).Hour()
		if ev.Start.Before(dayStart) {
			startHour = 0
		}
		endHour := ev.End.In(loc).Hour()
		if ev.End.After(dayEnd) {
			endHour = 23
		}
		if startHour <= hour && hour <= endHour {
			out = append(out, ev)
		}
	}
	return out
}

// InCurrentPeriod reports whether date belongs to the anchored period
// rather than being padding. Only month grids have padding days.
func InCurrentPeriod(date, anchor time.Time, mode ViewMode) bool {
	if mode != ModeMonth {
		return true
	}
	d := date.In(anchor.Location())
	return d.Year() == anchor.Year() && d.Month() == anchor.Month()
}
