package model

import (
	"strings"
	"time"
)

// Event is a single scheduled calendar entry as persisted by the store.
// The calendar core only reads and regroups events; the store is the only
// writer.
type Event struct {
	ID int64

	Title       string
	Description string
	Location    string

	Category Category
	Color    Color

	// Start / End are wall-clock instants in the display timezone.
	// End must be strictly after Start for a well-formed event.
	Start time.Time
	End   time.Time

	CreatedBy string

	// ExternalUID is the iCalendar UID for events imported from a feed.
	// Empty for events created through the API.
	ExternalUID string

	// Deleted marks a logically deleted event. Deleted events never appear
	// in listings or projections.
	Deleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Malformed reports whether the event's time range is empty or inverted.
func (e Event) Malformed() bool {
	return !e.End.After(e.Start)
}

// EventFilter narrows a store listing. Zero values mean "no constraint".
type EventFilter struct {
	// From / To bound Start by calendar date, inclusive on both ends.
	From time.Time
	To   time.Time

	Category  Category
	CreatedBy string
	// Query matches a case-insensitive substring of Title.
	Query string

	Limit  int
	Offset int
}

// Matches applies the non-range parts of the filter to e. Range and
// deleted checks are the store's concern since they depend on its calendar
// date semantics.
func (f EventFilter) Matches(e Event) bool {
	if f.Category != CategoryNone && e.Category != f.Category {
		return false
	}
	if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// EventPatch is a partial update with one optional slot per field. A nil
// slot leaves the stored value unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Category    *string
	Color       *string
	Start       *string
	End         *string
}

// Empty reports whether the patch touches no field.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Category == nil && p.Color == nil && p.Start == nil && p.End == nil
}
