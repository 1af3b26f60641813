package workout

import (
	"github.com/klokku/workout-planner/pkg/calendar_date"
)

// TimeBucketGroups holds one day's items split by time of day.
type TimeBucketGroups struct {
	Morning     []PlannableItem `json:"morning"`
	Afternoon   []PlannableItem `json:"afternoon"`
	Evening     []PlannableItem `json:"evening"`
	Unscheduled []PlannableItem `json:"unscheduled"`
}

func (g TimeBucketGroups) Len() int {
	return len(g.Morning) + len(g.Afternoon) + len(g.Evening) + len(g.Unscheduled)
}

// Bucket returns the items of one bucket; Unscheduled for anything unrecognised.
func (g TimeBucketGroups) Bucket(t TimeOfDay) []PlannableItem {
	switch t {
	case Morning:
		return g.Morning
	case Afternoon:
		return g.Afternoon
	case Evening:
		return g.Evening
	}
	return g.Unscheduled
}

// IndexByDate groups items by their YYYY-MM-DD date. Items without a date are skipped.
func IndexByDate(items []PlannableItem) map[string][]PlannableItem {
	index := make(map[string][]PlannableItem)
	for _, item := range items {
		if item.Date.IsZero() {
			continue
		}
		key := item.Date.String()
		index[key] = append(index[key], item)
	}
	return index
}

// ItemsForDay returns the day's items with selected ones first. The partition is
// stable: relative order inside each half is the input order.
func ItemsForDay(index map[string][]PlannableItem, date calendar_date.CalendarDate) []PlannableItem {
	dayItems := index[date.String()]
	result := make([]PlannableItem, 0, len(dayItems))
	for _, item := range dayItems {
		if item.IsSelected {
			result = append(result, item)
		}
	}
	for _, item := range dayItems {
		if !item.IsSelected {
			result = append(result, item)
		}
	}
	return result
}

// BucketByTimeOfDay splits items by time of day. Nothing is dropped: absent or
// unrecognised values land in Unscheduled.
func BucketByTimeOfDay(items []PlannableItem) TimeBucketGroups {
	groups := TimeBucketGroups{
		Morning:     []PlannableItem{},
		Afternoon:   []PlannableItem{},
		Evening:     []PlannableItem{},
		Unscheduled: []PlannableItem{},
	}
	for _, item := range items {
		t, _ := ParseTimeOfDay(string(item.TimeOfDay))
		switch t {
		case Morning:
			groups.Morning = append(groups.Morning, item)
		case Afternoon:
			groups.Afternoon = append(groups.Afternoon, item)
		case Evening:
			groups.Evening = append(groups.Evening, item)
		default:
			groups.Unscheduled = append(groups.Unscheduled, item)
		}
	}
	return groups
}

// Summary totals a set of items, e.g. one day or the displayed period.
type Summary struct {
	Count          int     `json:"count"`
	Selected       int     `json:"selected"`
	Custom         int     `json:"custom"`
	PlannedHours   float64 `json:"plannedHours"`
	DistanceMeters float64 `json:"distanceMeters"`
	TSS            float64 `json:"tss"`
}

// Summarize counts all items; durations, distances and TSS only count selected items.
func Summarize(items []PlannableItem) Summary {
	var s Summary
	for _, item := range items {
		s.Count++
		if item.IsCustom {
			s.Custom++
		}
		if !item.IsSelected {
			continue
		}
		s.Selected++
		if item.DurationHours != nil {
			s.PlannedHours += *item.DurationHours
		}
		if item.DistanceMeters != nil {
			s.DistanceMeters += *item.DistanceMeters
		}
		if item.TSS != nil {
			s.TSS += *item.TSS
		}
	}
	return s
}

// InPeriod keeps the items dated within [from, to].
func InPeriod(items []PlannableItem, from, to calendar_date.CalendarDate) []PlannableItem {
	result := make([]PlannableItem, 0, len(items))
	for _, item := range items {
		if !item.Date.IsZero() && item.Date.IsWithin(from, to) {
			result = append(result, item)
		}
	}
	return result
}
