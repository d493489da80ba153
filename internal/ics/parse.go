package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"

	appLog "sharecal/internal/log"
	"sharecal/internal/model"
	"sharecal/internal/store"
	"sharecal/internal/validate"
)

// untitled replaces an empty SUMMARY so imported events stay storable.
const untitled = "(no title)"

// creatorPrefix marks imported events in created_by ("ics:<source id>").
const creatorPrefix = "ics:"

// defaultTimedLength is applied to timed VEVENTs without DTEND.
const defaultTimedLength = time.Hour

// Item is one importable VEVENT mapped onto an event draft.
type Item struct {
	UID      string
	Sequence int
	Event    model.Event
}

// ParseResult holds the importable items of one payload and how many
// VEVENTs were left out.
type ParseResult struct {
	Items []Item
	// Skipped counts recurring masters, overridden instances and VEVENTs
	// that could not be mapped.
	Skipped int
}

// Parse decodes an iCalendar payload into event drafts in loc. Recurring
// events are not expanded; a VEVENT with RRULE or RECURRENCE-ID is skipped.
func Parse(src Source, body []byte, loc *time.Location) (ParseResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return ParseResult{}, errors.New("empty ics body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse calendar: %w", err)
	}

	var res ParseResult
	for _, ve := range cal.Events() {
		if ve.GetProperty(ical.ComponentPropertyRrule) != nil || ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
			res.Skipped++
			continue
		}
		item, err := parseVEvent(src, ve, loc)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "err", err)
			res.Skipped++
			continue
		}
		res.Items = append(res.Items, item)
	}

	appLog.Debug("ics parsed", "id", src.ID, "items", len(res.Items), "skipped", res.Skipped)
	return res, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (Item, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return Item{}, errors.New("missing UID")
	}

	if utf8.RuneCountInString(uid) > store.MaxExternalUIDLen {
		return Item{}, fmt.Errorf("UID exceeds %d characters", store.MaxExternalUIDLen)
	}

	item := Item{UID: uid}
	if seq := propValue(ve, ical.ComponentPropertySequence); seq != "" {
		if n, err := strconv.Atoi(seq); err == nil {
			item.Sequence = n
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return Item{}, fmt.Errorf("%s: missing DTSTART", uid)
	}
	start, allDay, err := propTime(dtStart, loc)
	if err != nil {
		return Item{}, fmt.Errorf("%s: DTSTART: %w", uid, err)
	}

	var end time.Time
	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, _, err = propTime(dtEnd, loc); err != nil {
			return Item{}, fmt.Errorf("%s: DTEND: %w", uid, err)
		}
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start.Add(defaultTimedLength)
	}

	category := model.CategoryNone
	if raw := propValue(ve, ical.ComponentProperty("CATEGORIES")); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if c, ok := model.ParseCategory(name); ok && c != model.CategoryNone {
				category = c
				break
			}
		}
	}

	color := model.Color(propValue(ve, ical.ComponentProperty("COLOR")))
	if !color.Valid() {
		color = category.Color()
	}

	title := truncate(propValue(ve, ical.ComponentPropertySummary), validate.MaxTitleLen)
	if title == "" {
		title = untitled
	}

	item.Event = model.Event{
		Title:       title,
		Description: truncate(propValue(ve, ical.ComponentPropertyDescription), validate.MaxDescriptionLen),
		Location:    truncate(propValue(ve, ical.ComponentPropertyLocation), validate.MaxLocationLen),
		Category:    category,
		Color:       color,
		Start:       start,
		End:         end,
		CreatedBy:   creatorPrefix + src.ID,
		ExternalUID: uid,
	}
	if item.Event.Malformed() {
		return Item{}, fmt.Errorf("%s: end is not after start", uid)
	}
	return item, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	p := ve.GetProperty(name)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// propTime reads a DATE or DATE-TIME property. UTC and TZID values are
// converted to loc; floating values are read as loc wall-clock time.
func propTime(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return time.Time{}, false, errors.New("empty value")
	}

	isDate := !strings.Contains(v, "T")
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(loc), false, err
	}

	in := loc
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) > 0 {
		if l, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			in = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", v, in)
	return t.In(loc), false, err
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
