package freebusy

import (
	"sort"
	"time"

	"fbtimeline/internal/timeline"
)

// DefaultSuggestionStep caps the distance between two suggestions.
const DefaultSuggestionStep = 30 * time.Minute

// SuggestionWindow returns the period of day in which suggestions are
// searched: the working window when only working hours are shown,
// otherwise the whole day.
func SuggestionWindow(day time.Time, wh timeline.WorkingHours, only bool) timeline.DateRange {
	y, m, d := day.Date()
	loc := day.Location()
	if only {
		return timeline.DateRange{
			Start: time.Date(y, m, d, 0, wh.StartMinute, 0, 0, loc),
			End:   time.Date(y, m, d, 0, wh.EndMinute, 0, 0, loc),
		}
	}

	// Step through noon so a DST switch at midnight cannot skip the date.
	next := time.Date(y, m, d, 12, 0, 0, 0, loc).AddDate(0, 0, 1)
	return timeline.DateRange{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc),
	}
}

// Suggestions lists meeting slots of the given duration inside window that
// do not touch any busy block. Candidates start at every step within each
// free gap; step <= 0 selects min(duration, DefaultSuggestionStep).
//
// busy is typically the output of BusyBlocks.
func Suggestions(busy []timeline.Interval, window timeline.DateRange, duration, step time.Duration) []timeline.DateRange {
	if duration <= 0 || window.Empty() {
		return nil
	}
	if step <= 0 {
		step = min(duration, DefaultSuggestionStep)
	}

	blocks := append([]timeline.Interval(nil), busy...)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Start.Before(blocks[j].Start)
	})

	var out []timeline.DateRange
	start, end := window.Start, window.End
	for _, b := range blocks {
		if b.End.Before(start) || b.Start.After(end) {
			continue
		}
		if !b.Start.After(start) {
			if b.End.After(start) {
				start = b.End
			}
			continue
		}
		out = append(out, slots(start, minTime(b.Start, end), duration, step)...)
		if b.End.After(start) {
			start = b.End
		}
	}
	if start.Before(end) {
		out = append(out, slots(start, end, duration, step)...)
	}
	return out
}

func slots(start, end time.Time, duration, step time.Duration) []timeline.DateRange {
	var out []timeline.DateRange
	last := end.Add(-duration)
	for t := start; !t.After(last); t = t.Add(step) {
		out = append(out, timeline.DateRange{Start: t, End: t.Add(duration)})
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
