package plan_export

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strconv"

	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

var csvHeader = []string{
	"Date", "Time of day", "Title", "Type", "Location",
	"Duration", "Distance (km)", "TSS", "Selected", "Custom", "Notes",
}

// CSV renders items ordered by date, then time of day. Items without a date are skipped.
func CSV(items []workout.PlannableItem) ([]byte, error) {
	rows := make([]workout.PlannableItem, 0, len(items))
	for _, item := range items {
		if !item.Date.IsZero() {
			rows = append(rows, item)
		}
	}
	slices.SortStableFunc(rows, func(a, b workout.PlannableItem) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return bucketOrder(a.TimeOfDay) - bucketOrder(b.TimeOfDay)
	})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.Write(csvHeader); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return nil, err
	}
	for _, item := range rows {
		err := writer.Write([]string{
			item.Date.String(),
			string(item.TimeOfDay),
			item.Title,
			item.Type,
			string(item.Location),
			durationToString(item.DurationHours),
			distanceToString(item.DistanceMeters),
			floatToString(item.TSS),
			strconv.FormatBool(item.IsSelected),
			strconv.FormatBool(item.IsCustom),
			item.Notes,
		})
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return nil, err
	}
	return b.Bytes(), nil
}

func bucketOrder(t workout.TimeOfDay) int {
	parsed, _ := workout.ParseTimeOfDay(string(t))
	for i, bucket := range workout.TimesOfDay {
		if bucket == parsed {
			return i
		}
	}
	return len(workout.TimesOfDay)
}

func durationToString(hours *float64) string {
	if hours == nil {
		return ""
	}
	minutes := int(*hours*60 + 0.5)
	h := strconv.Itoa(minutes / 60)
	m := strconv.Itoa(minutes % 60)
	if len(h) == 1 {
		h = "0" + h
	}
	if len(m) == 1 {
		m = "0" + m
	}
	return h + ":" + m
}

func distanceToString(meters *float64) string {
	if meters == nil {
		return ""
	}
	return strconv.FormatFloat(*meters/1000, 'f', 1, 64)
}

func floatToString(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
