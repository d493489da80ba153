package web

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"time"

	"sharecal/internal/calendar"
	"sharecal/internal/ics"
	appLog "sharecal/internal/log"
)

const maxImportBytes = 10 << 20

// handleExport serves events as an iCalendar file. Without start/end the
// current month is exported.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	now := s.clock.Now().In(s.loc)
	if f.From.IsZero() && f.To.IsZero() {
		f.From = calendar.MonthStart(now)
		f.To = calendar.MonthEnd(now)
	}
	// Exports are not paged.
	f.Limit, f.Offset = 0, 0

	events, err := s.store.ListEvents(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, events, now); err != nil {
		appLog.Error("ics export failed", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal", "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sharecal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type importResponse struct {
	Reports []ics.Report `json:"reports"`
	Errors  []string     `json:"errors,omitempty"`
}

// handleImport imports an uploaded text/calendar body, or with no body
// refreshes every configured feed right away.
//
// POST /api/import?source=<id>
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "import is not configured")
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/calendar" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
			return
		}
		src := ics.Source{ID: r.URL.Query().Get("source")}
		if src.ID == "" {
			src.ID = "upload"
		}
		rep, err := s.syncer.Import(r.Context(), src, body)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Reports: []ics.Report{rep}})
		return
	}

	started := time.Now()
	reports, err := s.syncer.SyncAll(r.Context())
	resp := importResponse{Reports: reports}
	if resp.Reports == nil {
		resp.Reports = []ics.Report{}
	}
	if err != nil {
		resp.Errors = splitJoined(err)
	}
	appLog.Info("manual import finished", "sources", len(reports), "errors", len(resp.Errors), "took_ms", time.Since(started).Milliseconds())
	writeJSON(w, http.StatusOK, resp)
}

// splitJoined flattens an errors.Join result into messages.
func splitJoined(err error) []string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		out := make([]string, 0)
		for _, e := range multi.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
