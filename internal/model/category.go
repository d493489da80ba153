package model

import "strings"

// Category is the closed set of event categories. The zero value means
// "no category".
type Category int

const (
	CategoryNone Category = iota
	CategoryWork
	CategoryPersonal
	CategoryMeeting
	CategoryHoliday
	CategoryOther
)

var categoryValues = map[Category]string{
	CategoryNone:     "",
	CategoryWork:     "work",
	CategoryPersonal: "personal",
	CategoryMeeting:  "meeting",
	CategoryHoliday:  "holiday",
	CategoryOther:    "other",
}

var categoryLabels = map[Category]string{
	CategoryNone:     "",
	CategoryWork:     "Work",
	CategoryPersonal: "Personal",
	CategoryMeeting:  "Meeting",
	CategoryHoliday:  "Holiday",
	CategoryOther:    "Other",
}

// Categories lists every selectable category in display order.
func Categories() []Category {
	return []Category{CategoryWork, CategoryPersonal, CategoryMeeting, CategoryHoliday, CategoryOther}
}

// Value is the stored form of the category ("" for CategoryNone).
func (c Category) Value() string {
	return categoryValues[c]
}

// Label is the human-readable name of the category.
func (c Category) Label() string {
	return categoryLabels[c]
}

func (c Category) String() string {
	return c.Value()
}

// Color returns the default display color for events in the category.
func (c Category) Color() Color {
	switch c {
	case CategoryWork:
		return ColorBlue
	case CategoryPersonal:
		return ColorGreen
	case CategoryMeeting:
		return ColorPurple
	case CategoryHoliday:
		return ColorRed
	default:
		return DefaultColor
	}
}

// ParseCategory resolves a stored value. The empty string yields
// CategoryNone with ok=true; unknown values yield ok=false.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, v := range categoryValues {
		if v == s {
			return c, true
		}
	}
	return CategoryNone, false
}
