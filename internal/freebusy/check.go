package freebusy

import (
	"sort"
	"time"

	"fbtimeline/internal/timeline"
)

// IsBusy reports whether the attendee on row owner has a non-free interval
// overlapping [start, end).
func IsBusy(intervals []timeline.Interval, owner int, start, end time.Time) bool {
	var own []timeline.Interval
	for _, iv := range intervals {
		if iv.OwnerRow == owner && !iv.Malformed() {
			own = append(own, iv)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Start.Before(own[j].Start)
	})

	for _, iv := range own {
		if !iv.End.After(start) || !counts(iv.Status) {
			continue
		}
		// Sorted by start: if the first candidate starts after the slot,
		// every later one does too.
		return iv.Start.Before(end)
	}
	return false
}

// AnyBusy reports whether any of the given owners is busy in [start, end).
func AnyBusy(intervals []timeline.Interval, owners []int, start, end time.Time) bool {
	for _, o := range owners {
		if IsBusy(intervals, o, start, end) {
			return true
		}
	}
	return false
}

// DefaultSnap is the selector granularity.
const DefaultSnap = 30 * time.Minute

// SnapSelection rounds ts to the nearest multiple of step since local
// midnight. step <= 0 selects DefaultSnap.
func SnapSelection(ts time.Time, step time.Duration) time.Time {
	if step <= 0 {
		step = DefaultSnap
	}
	stepSecs := int(step / time.Second)
	if stepSecs <= 0 {
		return ts
	}
	h, m, s := ts.Clock()
	secs := h*3600 + m*60 + s
	secs = (secs + stepSecs/2) / stepSecs * stepSecs

	y, mo, d := ts.Date()
	return time.Date(y, mo, d, 0, 0, secs, 0, ts.Location())
}

// Select builds the selection between a press at anchor and the pointer at
// current, both snapped. ok is false when they snap to the same instant.
func Select(anchor, current time.Time, step time.Duration) (r timeline.DateRange, ok bool) {
	a := SnapSelection(anchor, step)
	c := SnapSelection(current, step)
	switch {
	case a.Equal(c):
		return timeline.DateRange{}, false
	case a.Before(c):
		return timeline.DateRange{Start: a, End: c}, true
	default:
		return timeline.DateRange{Start: c, End: a}, true
	}
}

// Press returns the default selection created by a single click: a slot of
// one step at the snapped position.
func Press(ts time.Time, step time.Duration) timeline.DateRange {
	if step <= 0 {
		step = DefaultSnap
	}
	start := SnapSelection(ts, step)
	return timeline.DateRange{Start: start, End: start.Add(step)}
}
