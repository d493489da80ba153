package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"sharecal/internal/model"
)

const productID = "-//sharecal//sharecal//EN"

// UID returns the iCalendar UID of ev. Imported events keep their feed UID.
func UID(ev model.Event) string {
	if ev.ExternalUID != "" {
		return ev.ExternalUID
	}
	return fmt.Sprintf("event-%d@sharecal", ev.ID)
}

// Encode writes events as a VCALENDAR. Deleted events are left out and now
// is used as DTSTAMP.
func Encode(w io.Writer, events []model.Event, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		if ev.Deleted {
			continue
		}
		ve := cal.AddEvent(UID(ev))
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if v := ev.Category.Value(); v != "" {
			ve.SetProperty(ical.ComponentProperty("CATEGORIES"), v)
		}
		if ev.Color.Valid() {
			ve.SetProperty(ical.ComponentProperty("COLOR"), string(ev.Color))
		}
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt.UTC())
		}
		if !ev.UpdatedAt.IsZero() {
			ve.SetModifiedAt(ev.UpdatedAt.UTC())
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
