package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharecal/internal/config"
	"sharecal/internal/ics"
	"sharecal/internal/model"
)

const uploadBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:up-1\r\nDTSTART:20240318T090000Z\r\nDTEND:20240318T100000Z\r\nSUMMARY:Uploaded\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		model.Event{Title: "In March", Start: at(10, 9, 0), End: at(10, 10, 0)},
		model.Event{Title: "In April", Start: at(40, 9, 0), End: at(40, 10, 0)},
	)

	rec := env.do(t, http.MethodGet, "/api/events.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "SUMMARY:In March")
	assert.NotContains(t, body, "In April")

	rec = env.do(t, http.MethodGet, "/api/events.ics?start=2024-04-01&end=2024-04-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SUMMARY:In April")
}

func TestImportUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/import", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestImportUpload(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.Syncer = ics.NewSyncer(d.Store, ics.NewFetcher(t.TempDir(), nil), time.UTC, nil, nil)
	})

	rec := env.do(t, http.MethodPost, "/api/import?source=team", uploadBody, "Content-Type", "text/calendar")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[importResponse](t, rec)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "team", resp.Reports[0].Source)
	assert.Equal(t, 1, resp.Reports[0].Created)

	rec = env.do(t, http.MethodGet, "/api/events?creator=ics:team", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[listResponse](t, rec).Events
	require.Len(t, events, 1)
	assert.Equal(t, "up-1", events[0].ExternalUID)

	rec = env.do(t, http.MethodPost, "/api/import", "", "Content-Type", "text/calendar; charset=utf-8")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportConfiguredFeeds(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.ReplaceAll(uploadBody, "up-1", "feed-1")))
	}))
	defer feed.Close()

	env := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.Syncer = ics.NewSyncer(d.Store, ics.NewFetcher(t.TempDir(), feed.Client()), time.UTC,
			[]ics.Source{{ID: "feed", URL: feed.URL}, {ID: "missing"}}, nil)
	})

	rec := env.do(t, http.MethodPost, "/api/import", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[importResponse](t, rec)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, 1, resp.Reports[0].Created)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "missing")
}
