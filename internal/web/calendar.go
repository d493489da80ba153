package web

import (
	"fmt"
	"net/http"
	"time"

	"sharecal/internal/calendar"
	"sharecal/internal/model"
)

type hourDTO struct {
	Hour   int        `json:"hour"`
	Events []eventDTO `json:"events"`
}

type cellDTO struct {
	Date            string     `json:"date"`
	InCurrentPeriod bool       `json:"inCurrentPeriod"`
	Today           bool       `json:"today"`
	Events          []eventDTO `json:"events"`
	Total           int        `json:"total"`
	Overflow        int        `json:"overflow"`
	OverflowLabel   string     `json:"overflowLabel,omitempty"`
	Hours           []hourDTO  `json:"hours,omitempty"`
}

type calendarResponse struct {
	Mode   string    `json:"mode"`
	Anchor string    `json:"anchor"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Today  string    `json:"today"`
	Cells  []cellDTO `json:"cells"`
}

// handleCalendar renders one period of the calendar.
//
// GET /api/calendar?mode=month|week|day&date=YYYY-MM-DD&nav=prev|next|today
//   - mode: view granularity (default month)
//   - date: anchor date (default today)
//   - nav:  navigation applied after anchoring
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := calendar.ParseViewMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	view := calendar.NewViewState(s.clock)
	view.ChangeViewMode(mode)
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("date: expected YYYY-MM-DD, got %q", v))
			return
		}
		view.GoToDate(d)
	}
	switch nav := q.Get("nav"); nav {
	case "":
	case "prev":
		view.GoToPrevious()
	case "next":
		view.GoToNext()
	case "today":
		view.GoToToday()
	default:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("nav: unknown value %q", nav))
		return
	}

	period := view.Period()
	// Query the whole grid so month padding days carry their events too.
	dates := view.Dates()
	events, err := s.store.ListEvents(r.Context(), model.EventFilter{From: dates[0], To: dates[len(dates)-1]})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	cells := s.projector.Project(events, period)
	out := calendarResponse{
		Mode:   period.Mode.String(),
		Anchor: period.Anchor.Format(time.DateOnly),
		Title:  view.PeriodTitle(),
		Start:  period.Start,
		End:    period.End,
		Today:  s.clock.Now().In(s.loc).Format(time.DateOnly),
		Cells:  make([]cellDTO, 0, len(cells)),
	}
	for _, c := range cells {
		dto := cellDTO{
			Date:            c.Date.Format(time.DateOnly),
			InCurrentPeriod: c.InCurrentPeriod,
			Today:           c.Today,
			Events:          toDTOs(c.Visible()),
			Total:           len(c.Events),
			Overflow:        c.Overflow(),
			OverflowLabel:   c.OverflowLabel(),
		}
		for _, h := range c.Hours {
			dto.Hours = append(dto.Hours, hourDTO{Hour: h.Hour, Events: toDTOs(h.Events)})
		}
		out.Cells = append(out.Cells, dto)
	}
	writeJSON(w, http.StatusOK, out)
}
