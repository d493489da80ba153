package validate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sharecal/internal/model"
)

// Field length limits, counted in code points.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MaxLocationLen    = 200
)

// timestampLayouts are tried in order when parsing start/end values.
// Layouts without an offset are interpreted in the validator's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Errors maps a payload field name to a human-readable message. An empty
// map means the payload is valid.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// EventInput is the create/update payload as submitted by a client.
type EventInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Location    string `json:"location" validate:"max=200"`
	Start       string `json:"startDateTime" validate:"required,timestamp"`
	End         string `json:"endDateTime" validate:"required,timestamp"`
	Category    string `json:"category" validate:"omitempty,category"`
	Color       string `json:"color" validate:"omitempty,hexcolor36"`
}

// Validator checks event payloads. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	loc      *time.Location
}

// New creates a validator that interprets offset-less timestamps in loc
// (time.Local when nil).
func New(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	v := validator.New()

	// Report fields by their JSON names so callers can map errors to inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	out := &Validator{validate: v, loc: loc}
	rules := map[string]validator.Func{
		"timestamp":  out.validateTimestamp,
		"category":   validateCategory,
		"hexcolor36": validateColor,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validate: register %q: %v", tag, err))
		}
	}
	return out
}

// Location is the zone used for offset-less timestamps.
func (v *Validator) Location() *time.Location {
	return v.loc
}

// Event checks every field of in and returns all problems at once.
func (v *Validator) Event(in EventInput) Errors {
	in = normalize(in)
	errs := Errors{}

	if err := v.validate.Struct(in); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			errs["_"] = err.Error()
			return errs
		}
		for _, fe := range fieldErrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = message(fe)
		}
	}

	// Cross-field: only meaningful when both ends parsed.
	_, startBad := errs["startDateTime"]
	_, endBad := errs["endDateTime"]
	if !startBad && !endBad {
		start, _ := v.ParseTimestamp(in.Start)
		end, _ := v.ParseTimestamp(in.End)
		if !end.After(start) {
			errs["endDateTime"] = "endDateTime must be after startDateTime"
		}
	}

	return errs
}

// Build validates in and converts it to an event draft. The draft has no
// ID, timestamps or creator; the store and handlers fill those in.
func (v *Validator) Build(in EventInput) (model.Event, Errors) {
	if errs := v.Event(in); !errs.OK() {
		return model.Event{}, errs
	}
	in = normalize(in)

	start, _ := v.ParseTimestamp(in.Start)
	end, _ := v.ParseTimestamp(in.End)
	category, _ := model.ParseCategory(in.Category)

	color := model.Color(in.Color)
	if color == "" {
		color = category.Color()
	}

	return model.Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    category,
		Color:       color,
		Start:       start,
		End:         end,
	}, nil
}

// ParseTimestamp accepts RFC 3339 or a local "YYYY-MM-DD[T ]HH:MM[:SS]".
func (v *Validator) ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, v.loc); err == nil {
			return t.In(v.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (v *Validator) validateTimestamp(fl validator.FieldLevel) bool {
	_, err := v.ParseTimestamp(fl.Field().String())
	return err == nil
}

func validateCategory(fl validator.FieldLevel) bool {
	_, ok := model.ParseCategory(fl.Field().String())
	return ok
}

func validateColor(fl validator.FieldLevel) bool {
	return model.Color(fl.Field().String()).Valid()
}

func normalize(in EventInput) EventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Start = strings.TrimSpace(in.Start)
	in.End = strings.TrimSpace(in.End)
	in.Category = strings.TrimSpace(in.Category)
	in.Color = strings.TrimSpace(in.Color)
	return in
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "timestamp":
		return fe.Field() + " must be a valid date and time"
	case "category":
		names := make([]string, 0, len(model.Categories()))
		for _, c := range model.Categories() {
			names = append(names, c.Value())
		}
		return fe.Field() + " must be one of: " + strings.Join(names, ", ")
	case "hexcolor36":
		return fe.Field() + " must be a hex color such as #3788d8 or #fff"
	default:
		return fe.Field() + " is invalid"
	}
}
