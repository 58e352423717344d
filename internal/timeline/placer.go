package timeline

import (
	"time"
)

// PlaceOptions controls interval placement.
type PlaceOptions struct {
	// Period is the visible period. Defaults to the grid range.
	Period DateRange
	// RowHeight is the height of one attendee row.
	RowHeight int
	// SumRowHeight is the height of the aggregated attendee row.
	SumRowHeight int
	// BackgroundWidth is the right edge intervals running past the period
	// are clipped to. Defaults to the grid timeline width.
	BackgroundWidth int
}

func (o PlaceOptions) withDefaults(g *Grid) PlaceOptions {
	if o.Period.Start.IsZero() && o.Period.End.IsZero() {
		o.Period = g.rng
	}
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	if o.SumRowHeight <= 0 {
		o.SumRowHeight = DefaultSumRowHeight
	}
	if o.BackgroundWidth <= 0 {
		o.BackgroundWidth = g.timelineWidth
	}
	return o
}

// Filter decides whether an interval is visible at all.
type Filter struct {
	Period           DateRange
	WorkingHours     WorkingHours
	WorkingHoursOnly bool
	// Location is used to read wall clock times. Defaults to time.Local.
	Location *time.Location
}

// Keep reports whether iv survives filtering. Malformed intervals and
// intervals outside the period are dropped. In working-hours-only mode an
// interval shorter than the hidden band is dropped when it never touches
// the working window; one straddling the boundary is kept and clipped
// later.
func (f Filter) Keep(iv Interval) bool {
	if iv.Malformed() {
		return false
	}
	if !iv.Start.Before(f.Period.End) || !iv.End.After(f.Period.Start) {
		return false
	}
	if !f.WorkingHoursOnly {
		return true
	}
	if iv.End.Sub(iv.Start) > f.WorkingHours.HiddenDuration() {
		return true
	}

	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	start := iv.Start.In(loc)
	end := iv.End.In(loc)

	ws := f.WorkingHours.StartMinute * 60
	we := f.WorkingHours.EndMinute * 60
	ss := secondsSinceMidnight(start)
	es := secondsSinceMidnight(end)
	if (ss >= ws && ss < we) || (es > ws && es <= we) {
		return true
	}

	// Neither end lands inside working hours, but the interval can still
	// swallow a whole working window (08:00-18:00 for 9-17). It is shorter
	// than the hidden band, so only the start day and the next can matter.
	for d := 0; d < 2; d++ {
		day := start.AddDate(0, 0, d)
		win := DateRange{
			Start: clockOn(day, f.WorkingHours.StartMinute),
			End:   clockOn(day, f.WorkingHours.EndMinute),
		}
		if !win.Empty() && win.Overlaps(DateRange{Start: start, End: end}) {
			return true
		}
	}
	return false
}

// FilterIntervals returns the intervals that f keeps, in input order.
func FilterIntervals(intervals []Interval, f Filter) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if f.Keep(iv) {
			out = append(out, iv)
		}
	}
	return out
}

// PlaceIntervals computes one rectangle per visible interval, each on its
// owner's row. Overlapping intervals are not merged.
func PlaceIntervals(g *Grid, intervals []Interval, opts PlaceOptions) []PlacedRect {
	opts = opts.withDefaults(g)
	return place(g, intervals, opts, false)
}

// PlaceSummary places the aggregated "all attendees" intervals in the
// header summary row.
func PlaceSummary(g *Grid, intervals []Interval, opts PlaceOptions) []PlacedRect {
	opts = opts.withDefaults(g)
	return place(g, intervals, opts, true)
}

func place(g *Grid, intervals []Interval, opts PlaceOptions, summary bool) []PlacedRect {
	if g.Empty() {
		return nil
	}
	m := g.Mapper()
	f := Filter{
		Period:           opts.Period,
		WorkingHours:     g.workingHours,
		WorkingHoursOnly: g.workingHoursOnly,
		Location:         g.loc,
	}

	rects := make([]PlacedRect, 0, len(intervals))
	for i, iv := range intervals {
		if !f.Keep(iv) {
			continue
		}
		iv = remapUnknown(m, iv)
		if !iv.Start.Before(opts.Period.End) || !iv.End.After(opts.Period.Start) {
			continue
		}

		r := PlacedRect{
			StatusClass: iv.Status.Class(),
			Index:       i,
			OwnerRow:    iv.OwnerRow,
		}

		if summary {
			r.Top = 1
			r.Height = opts.SumRowHeight - 2
			r.OwnerRow = -1
		} else {
			r.Top = 1
			if iv.OwnerRow >= 0 {
				r.Top += iv.OwnerRow * opts.RowHeight
			}
			r.Height = opts.RowHeight - 2
		}

		if !iv.Start.Before(opts.Period.Start) {
			r.Left = m.PixelOffset(iv.Start, true)
		}
		if iv.End.After(opts.Period.End) {
			r.Width = opts.BackgroundWidth - r.Left
		} else {
			r.Width = m.PixelOffset(iv.End, false) - r.Left
		}
		if r.Width < 0 {
			r.Width = 0
		}
		rects = append(rects, r)
	}
	return rects
}

// remapUnknown turns a "no data" interval into a whole-day placeholder when
// only working hours are shown: the start moves to the next work day and
// snaps to that day's midnight on the grid.
func remapUnknown(m *Mapper, iv Interval) Interval {
	g := m.g
	if iv.Status != StatusUnknown || !g.workingHoursOnly {
		return iv
	}
	start := iv.Start.In(g.loc)
	if len(g.workingHours.WorkDays) > 0 {
		for i := 0; i < 7 && !g.workingHours.IsWorkDay(start.Weekday()); i++ {
			start = start.AddDate(0, 0, 1)
		}
	}
	iv.Start = g.days[m.DayIndex(start, true)].Timestamp
	if !iv.End.After(iv.Start) {
		iv.End = iv.Start.AddDate(0, 0, 1)
	}
	return iv
}

func secondsSinceMidnight(t time.Time) int {
	h, m, s := t.Clock()
	return h*3600 + m*60 + s
}

func clockOn(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, day.Location())
}

// Draw hands every rectangle to s in order.
func Draw(s Surface, rects []PlacedRect) {
	for _, r := range rects {
		s.DrawRect(r)
	}
}
