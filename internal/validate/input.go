package validate

import (
	"time"

	"sharecal/internal/model"
)

// FromEvent renders a stored event back into payload form, the starting
// point for applying a partial update.
func FromEvent(ev model.Event) EventInput {
	return EventInput{
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.Start.Format(time.RFC3339),
		End:         ev.End.Format(time.RFC3339),
		Category:    ev.Category.Value(),
		Color:       string(ev.Color),
	}
}

// ApplyPatch overlays the set slots of p onto in.
func ApplyPatch(in EventInput, p model.EventPatch) EventInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Location != nil {
		in.Location = *p.Location
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Color != nil {
		in.Color = *p.Color
	}
	if p.Start != nil {
		in.Start = *p.Start
	}
	if p.End != nil {
		in.End = *p.End
	}
	return in
}
