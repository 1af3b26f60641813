package workout

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/klokku/workout-planner/pkg/calendar_date"
)

var ErrNotFound = fmt.Errorf("plannable item not found")
var ErrInvalidItem = fmt.Errorf("invalid plannable item")

type TimeOfDay string

const (
	Morning     TimeOfDay = "morning"
	Afternoon   TimeOfDay = "afternoon"
	Evening     TimeOfDay = "evening"
	Unscheduled TimeOfDay = ""
)

// TimesOfDay lists the scheduled buckets in display order.
var TimesOfDay = []TimeOfDay{Morning, Afternoon, Evening}

// ParseTimeOfDay is case-insensitive. Unknown values map to Unscheduled with ok=false.
func ParseTimeOfDay(value string) (TimeOfDay, bool) {
	switch TimeOfDay(strings.ToLower(strings.TrimSpace(value))) {
	case Morning:
		return Morning, true
	case Afternoon:
		return Afternoon, true
	case Evening:
		return Evening, true
	}
	return Unscheduled, false
}

func (t TimeOfDay) IsScheduled() bool {
	_, ok := ParseTimeOfDay(string(t))
	return ok
}

type Location string

const (
	Indoor          Location = "indoor"
	Outdoor         Location = "outdoor"
	UnknownLocation Location = ""
)

func ParseLocation(value string) (Location, bool) {
	switch Location(strings.ToLower(strings.TrimSpace(value))) {
	case Indoor:
		return Indoor, true
	case Outdoor:
		return Outdoor, true
	}
	return UnknownLocation, false
}

// PlannableItem is a workout as the planner sees it, either imported or
// created by the user. Only Date and TimeOfDay are changed by drag and drop.
type PlannableItem struct {
	ID              int                        `json:"id" validate:"required,gt=0"`
	Title           string                     `json:"title" validate:"required"`
	Type            string                     `json:"workoutType" validate:"required"`
	Date            calendar_date.CalendarDate `json:"date" validate:"required"`
	OriginalDate    calendar_date.CalendarDate `json:"originalDate"`
	DurationHours   *float64                   `json:"durationHours,omitempty" validate:"omitempty,gte=0"`
	DistanceMeters  *float64                   `json:"distanceMeters,omitempty" validate:"omitempty,gte=0"`
	TSS             *float64                   `json:"tss,omitempty" validate:"omitempty,gte=0"`
	IntensityFactor *float64                   `json:"intensityFactor,omitempty" validate:"omitempty,gte=0"`
	Description     string                     `json:"description,omitempty"`
	CoachComments   string                     `json:"coachComments,omitempty"`
	Notes           string                     `json:"notes,omitempty"`
	IsSelected      bool                       `json:"isSelected"`
	TimeOfDay       TimeOfDay                  `json:"timeOfDay"`
	Location        Location                   `json:"location"`
	IsCustom        bool                       `json:"isCustom"`
}

// Key identifies an item across the imported and custom id spaces.
type Key struct {
	ID       int
	IsCustom bool
}

func (i PlannableItem) Key() Key {
	return Key{ID: i.ID, IsCustom: i.IsCustom}
}

func (k Key) String() string {
	if k.IsCustom {
		return fmt.Sprintf("c%d", k.ID)
	}
	return fmt.Sprintf("%d", k.ID)
}

// ParseKey reads "12" (imported) or "c12" (custom).
func ParseKey(value string) (Key, error) {
	custom := strings.HasPrefix(value, "c")
	id, err := strconv.Atoi(strings.TrimPrefix(value, "c"))
	if err != nil || id <= 0 {
		return Key{}, fmt.Errorf("%w: bad item key %q", ErrNotFound, value)
	}
	return Key{ID: id, IsCustom: custom}, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(calendar_date.CalendarDate); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, calendar_date.CalendarDate{})
	return v
}

// Validate enforces the required fields and non-negative measures.
func (i PlannableItem) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return nil
}
