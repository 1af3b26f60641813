package backend

import (
	"fmt"

	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

// ToPlannableItem maps an imported workout. The effective date is the
// user's currentPlanDay when set, else the originally planned day. Without a
// selection record the workout counts as selected.
func ToPlannableItem(dto WorkoutDTO) (workout.PlannableItem, error) {
	original := firstDate(dto.OriginallyPlannedDay, dto.WorkoutDay)
	item := workout.PlannableItem{
		ID:              dto.ID,
		Title:           dto.Title,
		Type:            dto.WorkoutType,
		Date:            original,
		OriginalDate:    original,
		DurationHours:   dto.PlannedDuration,
		DistanceMeters:  dto.PlannedDistanceInMeters,
		TSS:             dto.TSS,
		IntensityFactor: dto.IntensityFactor,
		Description:     dto.WorkoutDescription,
		CoachComments:   dto.CoachComments,
		IsSelected:      true,
	}

	if s := dto.Selection; s != nil {
		if current := firstDate(s.CurrentPlanDay, s.ActualDate); !current.IsZero() {
			item.Date = current
		}
		if s.IsSelected != nil {
			item.IsSelected = *s.IsSelected
		}
		if s.TimeOfDay != nil {
			item.TimeOfDay = timeOfDay(*s.TimeOfDay, dto.ID)
		}
		if s.WorkoutLocation != nil {
			location, ok := workout.ParseLocation(*s.WorkoutLocation)
			if !ok && *s.WorkoutLocation != "" {
				log.Debugf("workout %d has unknown location %q", dto.ID, *s.WorkoutLocation)
			}
			item.Location = location
		}
		if s.UserNotes != nil {
			item.Notes = *s.UserNotes
		}
	}

	if err := item.Validate(); err != nil {
		return workout.PlannableItem{}, fmt.Errorf("workout %d: %w", dto.ID, err)
	}
	return item, nil
}

// CustomToPlannableItem maps a user-created workout.
func CustomToPlannableItem(dto CustomWorkoutDTO) (workout.PlannableItem, error) {
	item := workout.PlannableItem{
		ID:            dto.ID,
		Title:         dto.Title,
		Type:          dto.WorkoutType,
		Date:          dto.PlannedDate,
		OriginalDate:  dto.PlannedDate,
		DurationHours: dto.PlannedDuration,
		Description:   dto.Description,
		IsSelected:    true,
		IsCustom:      true,
	}
	if dto.TimeOfDay != nil {
		item.TimeOfDay = timeOfDay(*dto.TimeOfDay, dto.ID)
	}
	if err := item.Validate(); err != nil {
		return workout.PlannableItem{}, fmt.Errorf("custom workout %d: %w", dto.ID, err)
	}
	return item, nil
}

// timeOfDay keeps unknown values verbatim; the grouper files them as unscheduled.
func timeOfDay(value string, id int) workout.TimeOfDay {
	parsed, ok := workout.ParseTimeOfDay(value)
	if ok {
		return parsed
	}
	if value != "" {
		log.Debugf("workout %d has free-form time of day %q", id, value)
	}
	return workout.TimeOfDay(value)
}

func firstDate(dates ...*calendar_date.CalendarDate) calendar_date.CalendarDate {
	for _, d := range dates {
		if d != nil && !d.IsZero() {
			return *d
		}
	}
	return calendar_date.CalendarDate{}
}

// CustomDraft converts a new plannable item into the create payload.
func CustomDraft(item workout.PlannableItem) CustomWorkoutDTO {
	dto := CustomWorkoutDTO{
		Title:           item.Title,
		WorkoutType:     item.Type,
		Description:     item.Description,
		PlannedDate:     item.Date,
		PlannedDuration: item.DurationHours,
	}
	if item.TimeOfDay != workout.Unscheduled {
		t := string(item.TimeOfDay)
		dto.TimeOfDay = &t
	}
	return dto
}
