package ics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharecal/internal/model"
)

func TestUID(t *testing.T) {
	assert.Equal(t, "event-7@sharecal", UID(model.Event{ID: 7}))
	assert.Equal(t, "abc@feed", UID(model.Event{ID: 7, ExternalUID: "abc@feed"}))
}

func TestEncodeRoundTrip(t *testing.T) {
	start := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	events := []model.Event{
		{
			ID:          1,
			Title:       "Planning",
			Description: "Quarterly",
			Location:    "HQ",
			Category:    model.CategoryWork,
			Color:       model.ColorBlue,
			Start:       start,
			End:         start.Add(90 * time.Minute),
		},
		{ID: 2, Title: "Gone", Start: start, End: start.Add(time.Hour), Deleted: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, events, start))
	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:event-1@sharecal")
	assert.NotContains(t, out, "Gone")

	res, err := Parse(Source{ID: "self"}, buf.Bytes(), time.UTC)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	got := res.Items[0].Event
	assert.Equal(t, "Planning", got.Title)
	assert.Equal(t, "Quarterly", got.Description)
	assert.Equal(t, "HQ", got.Location)
	assert.Equal(t, model.CategoryWork, got.Category)
	assert.Equal(t, model.ColorBlue, got.Color)
	assert.True(t, got.Start.Equal(start))
	assert.True(t, got.End.Equal(start.Add(90*time.Minute)))
}
