package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"sharecal/internal/calendar"
	"sharecal/internal/model"
)

// Column widths of the events table, in code points.
const (
	MaxCreatedByLen   = 100
	MaxExternalUIDLen = 255
)

var (
	ErrNotFound = errors.New("event not found")
	ErrInvalid  = errors.New("invalid event")

	// ErrDuplicateUID is returned when an imported UID is already stored.
	ErrDuplicateUID = errors.New("duplicate external uid")
)

// Store persists events. Every query excludes logically deleted events.
type Store interface {
	// ListEvents returns events whose Start falls on a calendar day in
	// [filter.From, filter.To], ordered by Start then ID.
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	// GetEventByUID looks up an imported event by its iCalendar UID.
	GetEventByUID(ctx context.Context, uid string) (model.Event, error)
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	// DeleteEvent marks the event deleted; it stays in storage for history.
	DeleteEvent(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// rangeBounds widens a filter's dates to whole days. Zero bounds stay zero.
func rangeBounds(f model.EventFilter) (from, to time.Time) {
	if !f.From.IsZero() {
		from = calendar.DayStart(f.From)
	}
	if !f.To.IsZero() {
		to = calendar.DayEnd(f.To)
	}
	return from, to
}

func checkEvent(ev model.Event) error {
	if ev.Title == "" {
		return errors.Join(ErrInvalid, errors.New("title is empty"))
	}
	if ev.Malformed() {
		return errors.Join(ErrInvalid, errors.New("end must be after start"))
	}
	if utf8.RuneCountInString(ev.CreatedBy) > MaxCreatedByLen {
		return errors.Join(ErrInvalid, fmt.Errorf("creator exceeds %d characters", MaxCreatedByLen))
	}
	if utf8.RuneCountInString(ev.ExternalUID) > MaxExternalUIDLen {
		return errors.Join(ErrInvalid, fmt.Errorf("external uid exceeds %d characters", MaxExternalUIDLen))
	}
	return nil
}
