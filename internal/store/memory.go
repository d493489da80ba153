package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sharecal/internal/clock"
	"sharecal/internal/model"
)

// MemoryStore keeps events in process memory. It backs the service when no
// database is reachable and is used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	clock  clock.Clock
	nextID int64
	events map[int64]model.Event
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &MemoryStore{
		clock:  c,
		nextID: 1,
		events: make(map[int64]model.Event),
	}
}

func (s *MemoryStore) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	from, to := rangeBounds(f)

	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.Deleted || !f.Matches(ev) {
			continue
		}
		if !from.IsZero() && ev.Start.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Start.After(to) {
			continue
		}
		out = append(out, ev)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok || ev.Deleted {
		return model.Event{}, ErrNotFound
	}
	return ev, nil
}

func (s *MemoryStore) GetEventByUID(_ context.Context, uid string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if uid != "" && ev.ExternalUID == uid && !ev.Deleted {
			return ev, nil
		}
	}
	return model.Event{}, ErrNotFound
}

func (s *MemoryStore) CreateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	if err := checkEvent(ev); err != nil {
		return model.Event{}, err
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uidTaken(ev.ExternalUID, 0) {
		return model.Event{}, ErrDuplicateUID
	}
	ev.ID = s.nextID
	s.nextID++
	ev.Color = ev.Color.OrDefault()
	ev.Deleted = false
	ev.CreatedAt = now
	ev.UpdatedAt = now
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	if err := checkEvent(ev); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[ev.ID]
	if !ok || cur.Deleted {
		return model.Event{}, ErrNotFound
	}
	if s.uidTaken(ev.ExternalUID, ev.ID) {
		return model.Event{}, ErrDuplicateUID
	}
	ev.Color = ev.Color.OrDefault()
	ev.CreatedAt = cur.CreatedAt
	ev.CreatedBy = cur.CreatedBy
	if ev.ExternalUID == "" {
		ev.ExternalUID = cur.ExternalUID
	}
	ev.Deleted = false
	ev.UpdatedAt = s.clock.Now()
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.Deleted {
		return ErrNotFound
	}
	ev.Deleted = true
	ev.UpdatedAt = s.clock.Now()
	s.events[id] = ev
	return nil
}

// uidTaken reports whether another stored event already carries uid.
// Deleted rows count too, matching the unique index in the database.
func (s *MemoryStore) uidTaken(uid string, self int64) bool {
	if uid == "" {
		return false
	}
	for id, ev := range s.events {
		if id != self && ev.ExternalUID == uid {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

func page(events []model.Event, limit, offset int) []model.Event {
	if offset > 0 {
		if offset >= len(events) {
			return []model.Event{}
		}
		events = events[offset:]
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}

// Seed fills s with a small sample dataset around the clock's current
// month so a fresh instance renders something useful.
func Seed(ctx context.Context, s Store, c clock.Clock) (int, error) {
	now := c.Now()
	y, m, _ := now.Date()
	loc := now.Location()
	day := func(d, h, minute int) time.Time {
		return time.Date(y, m, d, h, minute, 0, 0, loc)
	}

	samples := []model.Event{
		{Title: "Team standup", Category: model.CategoryMeeting, Start: day(2, 9, 30), End: day(2, 9, 45)},
		{Title: "Sprint planning", Category: model.CategoryWork, Location: "Room 3", Start: day(3, 10, 0), End: day(3, 12, 0)},
		{Title: "Dentist", Category: model.CategoryPersonal, Start: day(7, 16, 0), End: day(7, 17, 0)},
		{Title: "Design review", Category: model.CategoryMeeting, Start: day(10, 14, 0), End: day(10, 15, 30)},
		{Title: "Release cut", Category: model.CategoryWork, Start: day(14, 11, 0), End: day(14, 11, 30)},
		{Title: "1:1", Category: model.CategoryMeeting, Start: day(14, 13, 0), End: day(14, 13, 30)},
		{Title: "Customer call", Category: model.CategoryWork, Start: day(14, 15, 0), End: day(14, 16, 0)},
		{Title: "Gym", Category: model.CategoryPersonal, Start: day(14, 19, 0), End: day(14, 20, 0)},
		{Title: "Company holiday", Category: model.CategoryHoliday, Description: "Office closed", Start: day(20, 0, 0), End: day(20, 23, 59)},
		{Title: "Retrospective", Category: model.CategoryMeeting, Start: day(24, 16, 0), End: day(24, 17, 0)},
		{Title: "Book club", Category: model.CategoryOther, Location: "Library", Start: day(27, 19, 0), End: day(27, 21, 0)},
	}

	n := 0
	for _, ev := range samples {
		ev.Color = ev.Category.Color()
		ev.CreatedBy = "seed"
		if _, err := s.CreateEvent(ctx, ev); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
