package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	appLog "sharecal/internal/log"
	"sharecal/internal/model"
	"sharecal/internal/store"
	"sharecal/internal/validate"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	anonymousUser    = "anonymous"
	creatorHeader    = "X-User"
)

// eventDTO is the JSON form of an event.
type eventDTO struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"categoryLabel,omitempty"`
	Color         string    `json:"color"`
	CreatedBy     string    `json:"createdBy"`
	ExternalUID   string    `json:"externalUid,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDTO(ev model.Event) eventDTO {
	return eventDTO{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		Location:      ev.Location,
		StartDateTime: ev.Start,
		EndDateTime:   ev.End,
		Category:      ev.Category.Value(),
		CategoryLabel: ev.Category.Label(),
		Color:         string(ev.Color),
		CreatedBy:     ev.CreatedBy,
		ExternalUID:   ev.ExternalUID,
		CreatedAt:     ev.CreatedAt,
		UpdatedAt:     ev.UpdatedAt,
	}
}

func toDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, toDTO(ev))
	}
	return out
}

// patchRequest mirrors validate.EventInput with optional fields.
type patchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Start       *string `json:"startDateTime"`
	End         *string `json:"endDateTime"`
	Category    *string `json:"category"`
	Color       *string `json:"color"`
}

func (p patchRequest) toPatch() model.EventPatch {
	return model.EventPatch{
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		Category:    p.Category,
		Color:       p.Color,
		Start:       p.Start,
		End:         p.End,
	}
}

type listResponse struct {
	Events []eventDTO `json:"events"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// creator names who is making the request: the basic auth user when
// present, else the X-User header, else "anonymous". Names wider than the
// stored column are rejected.
func creator(r *http.Request) (string, error) {
	name := anonymousUser
	if u, _, ok := r.BasicAuth(); ok && u != "" {
		name = u
	} else if u := r.Header.Get(creatorHeader); u != "" {
		name = u
	}
	if utf8.RuneCountInString(name) > store.MaxCreatedByLen {
		return name, fmt.Errorf("user name exceeds %d characters", store.MaxCreatedByLen)
	}
	return name, nil
}

// parseFilter reads list query parameters:
//
//	start, end   calendar dates (YYYY-MM-DD) or timestamps, inclusive
//	category     one of the category values
//	creator      exact creator name
//	q            case-insensitive title substring
//	limit/offset paging; limit defaults to 100, capped at 500
func (s *Server) parseFilter(r *http.Request) (model.EventFilter, error) {
	q := r.URL.Query()
	var f model.EventFilter

	var err error
	if f.From, err = s.parseDate(q.Get("start")); err != nil {
		return f, fmt.Errorf("start: %w", err)
	}
	if f.To, err = s.parseDate(q.Get("end")); err != nil {
		return f, fmt.Errorf("end: %w", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errors.New("end must not be before start")
	}

	if v := q.Get("category"); v != "" {
		c, ok := model.ParseCategory(v)
		if !ok {
			return f, fmt.Errorf("category: unknown value %q", v)
		}
		f.Category = c
	}
	f.CreatedBy = q.Get("creator")
	f.Query = q.Get("q")

	if f.Limit, err = parseIntDefault(q.Get("limit"), defaultListLimit); err != nil {
		return f, fmt.Errorf("limit: %w", err)
	}
	if f.Limit == 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset, err = parseIntDefault(q.Get("offset"), 0); err != nil {
		return f, fmt.Errorf("offset: %w", err)
	}
	return f, nil
}

// parseDate accepts YYYY-MM-DD or any timestamp the validator accepts.
// The empty string yields the zero time.
func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, s.loc); err == nil {
		return t, nil
	}
	return s.validator.ParseTimestamp(v)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	events, err := s.store.ListEvents(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Events: toDTOs(events), Limit: f.Limit, Offset: f.Offset})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	ev, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(ev))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	by, err := creator(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var in validate.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	draft, errs := s.validator.Build(in)
	if !errs.OK() {
		writeValidation(w, errs)
		return
	}
	draft.CreatedBy = by

	ev, err := s.store.CreateEvent(r.Context(), draft)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	appLog.Info("event created", "id", ev.ID, "created_by", ev.CreatedBy, "request_id", RequestID(r.Context()))
	w.Header().Set("Location", fmt.Sprintf("/api/events/%d", ev.ID))
	writeJSON(w, http.StatusCreated, toDTO(ev))
}

func (s *Server) handleReplaceEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var in validate.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.update(w, r, id, in)
}

func (s *Server) handlePatchEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	patch := req.toPatch()
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "bad_request", "patch sets no field")
		return
	}

	cur, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.update(w, r, id, validate.ApplyPatch(validate.FromEvent(cur), patch))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, id int64, in validate.EventInput) {
	draft, errs := s.validator.Build(in)
	if !errs.OK() {
		writeValidation(w, errs)
		return
	}
	draft.ID = id

	ev, err := s.store.UpdateEvent(r.Context(), draft)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	appLog.Info("event updated", "id", ev.ID, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusOK, toDTO(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.store.DeleteEvent(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	by, _ := creator(r)
	appLog.Info("event deleted", "id", id, "by", by, "request_id", RequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

type validateResponse struct {
	Valid  bool            `json:"valid"`
	Errors validate.Errors `json:"errors"`
}

// handleValidate checks a payload without saving it.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var in validate.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	errs := s.validator.Event(in)
	writeJSON(w, http.StatusOK, validateResponse{Valid: errs.OK(), Errors: errs})
}
