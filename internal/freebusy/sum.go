// Package freebusy aggregates per-attendee intervals: the summary row shared
// by all attendees, meeting suggestions in the free gaps, and availability
// checks for a proposed slot.
package freebusy

import (
	"sort"

	"fbtimeline/internal/timeline"
)

// paintOrder ranks statuses so stronger ones are drawn on top.
var paintOrder = map[timeline.Status]int{
	timeline.StatusTentative:        1,
	timeline.StatusBusy:             2,
	timeline.StatusWorkingElsewhere: 3,
	timeline.StatusOutOfOffice:      4,
}

func counts(s timeline.Status) bool {
	return s != timeline.StatusFree && s != timeline.StatusUnknown
}

// SumBlocks builds the summary row from every attendee's intervals.
//
// With a single attendee the summary is a copy of their non-free intervals.
// With more, intervals of the same status that overlap or touch are merged;
// when split is false every status collapses to Busy. The result is ordered
// by paint order and carries OwnerRow -1.
func SumBlocks(intervals []timeline.Interval, users int, split bool) []timeline.Interval {
	var out []timeline.Interval
	if users == 1 {
		for _, iv := range intervals {
			if counts(iv.Status) && !iv.Malformed() {
				iv.OwnerRow = -1
				out = append(out, iv)
			}
		}
	} else {
		out = merge(intervals, split)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return paintOrder[out[i].Status] < paintOrder[out[j].Status]
	})
	return out
}

// BusyBlocks merges every non-free interval into Busy blocks, ordered by
// start. Their gaps are the slots where everybody is free.
func BusyBlocks(intervals []timeline.Interval) []timeline.Interval {
	return merge(intervals, false)
}

func merge(intervals []timeline.Interval, split bool) []timeline.Interval {
	sorted := make([]timeline.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if counts(iv.Status) && !iv.Malformed() {
			sorted = append(sorted, iv)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var out []timeline.Interval
	last := make(map[timeline.Status]int)
	for _, iv := range sorted {
		status := iv.Status
		if !split {
			status = timeline.StatusBusy
		}

		if i, ok := last[status]; ok && !iv.Start.After(out[i].End) {
			if iv.End.After(out[i].End) {
				out[i].End = iv.End
			}
			continue
		}

		last[status] = len(out)
		out = append(out, timeline.Interval{
			Start:    iv.Start,
			End:      iv.End,
			Status:   status,
			OwnerRow: -1,
		})
	}
	return out
}
