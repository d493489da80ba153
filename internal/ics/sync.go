package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	appLog "sharecal/internal/log"
	"sharecal/internal/model"
	"sharecal/internal/store"
)

// Report summarizes one import run for a single source.
type Report struct {
	Source    string `json:"source"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	// Skipped counts VEVENTs left out by the parser plus imported events
	// that were deleted locally and are not recreated.
	Skipped int  `json:"skipped"`
	Failed  int  `json:"failed"`
	Cached  bool `json:"cached"`
}

// Recorder receives import counts, e.g. for metrics.
type Recorder interface {
	RecordSync(source string, created, updated, skipped, failed int)
}

// Syncer imports feeds into the store, matching events by UID.
type Syncer struct {
	store    store.Store
	fetcher  *Fetcher
	loc      *time.Location
	sources  []Source
	recorder Recorder

	// mu keeps scheduled and manual runs from interleaving upserts.
	mu sync.Mutex
}

func NewSyncer(st store.Store, f *Fetcher, loc *time.Location, sources []Source, rec Recorder) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	return &Syncer{store: st, fetcher: f, loc: loc, sources: sources, recorder: rec}
}

// Sources returns the configured feeds.
func (s *Syncer) Sources() []Source {
	return s.sources
}

// SyncAll fetches and imports every configured source. A failing source
// does not stop the others; their errors are joined in the result.
func (s *Syncer) SyncAll(ctx context.Context) ([]Report, error) {
	if len(s.sources) == 0 {
		return nil, nil
	}
	started := time.Now()

	fetched, errs := s.fetcher.FetchAll(ctx, s.sources)
	reports := make([]Report, 0, len(fetched))
	for _, res := range fetched {
		rep, err := s.Import(ctx, res.Source, res.Body)
		rep.Cached = res.FromCache
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Source.ID, err))
		}
		reports = append(reports, rep)
	}

	appLog.Info("ics sync finished",
		"sources", len(s.sources),
		"imported", len(reports),
		"errors", len(errs),
		"took_ms", time.Since(started).Milliseconds(),
	)
	return reports, errors.Join(errs...)
}

// Import parses body and upserts its events as belonging to src.
func (s *Syncer) Import(ctx context.Context, src Source, body []byte) (Report, error) {
	rep := Report{Source: src.ID}
	if utf8.RuneCountInString(creatorPrefix+src.ID) > store.MaxCreatedByLen {
		return rep, fmt.Errorf("source id exceeds %d characters", store.MaxCreatedByLen-len(creatorPrefix))
	}

	parsed, err := Parse(src, body, s.loc)
	if err != nil {
		s.record(rep)
		return rep, err
	}
	rep.Skipped = parsed.Skipped

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range parsed.Items {
		if err := ctx.Err(); err != nil {
			s.record(rep)
			return rep, err
		}
		if err := s.upsert(ctx, item, &rep); err != nil {
			rep.Failed++
			appLog.Error("ics upsert failed", err, "source", src.ID, "uid", item.UID)
		}
	}

	appLog.Info("ics import finished",
		"source", src.ID,
		"created", rep.Created,
		"updated", rep.Updated,
		"unchanged", rep.Unchanged,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	s.record(rep)
	return rep, nil
}

func (s *Syncer) upsert(ctx context.Context, item Item, rep *Report) error {
	cur, err := s.store.GetEventByUID(ctx, item.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_, err := s.store.CreateEvent(ctx, item.Event)
		if errors.Is(err, store.ErrDuplicateUID) {
			// Deleted locally; keep it deleted.
			rep.Skipped++
			return nil
		}
		if err != nil {
			return err
		}
		rep.Created++
		return nil
	case err != nil:
		return err
	}

	if sameContent(cur, item.Event) {
		rep.Unchanged++
		return nil
	}
	next := item.Event
	next.ID = cur.ID
	if _, err := s.store.UpdateEvent(ctx, next); err != nil {
		return err
	}
	rep.Updated++
	return nil
}

func (s *Syncer) record(rep Report) {
	if s.recorder != nil {
		s.recorder.RecordSync(rep.Source, rep.Created, rep.Updated, rep.Skipped, rep.Failed)
	}
}

func sameContent(a, b model.Event) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Location == b.Location &&
		a.Category == b.Category &&
		a.Color == b.Color &&
		a.Start.Equal(b.Start) &&
		a.End.Equal(b.End)
}
