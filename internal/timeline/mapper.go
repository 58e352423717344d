package timeline

import (
	"math"
	"time"
)

// Mapper converts between instants and horizontal pixel offsets on one Grid.
// It never outlives the grid it was obtained from.
type Mapper struct {
	g *Grid
}

// Grid returns the grid the mapper is bound to.
func (m *Mapper) Grid() *Grid { return m.g }

// DayIndex returns the index of the day ts belongs to. With inclusive set a
// timestamp exactly at midnight belongs to the new day; otherwise to the
// previous one. Timestamps before the first day clamp to 0.
func (m *Mapper) DayIndex(ts time.Time, inclusive bool) int {
	idx := 0
	for i, d := range m.g.days {
		if inclusive && !d.Timestamp.After(ts) {
			idx = i
		} else if !inclusive && d.Timestamp.Before(ts) {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// OffsetWithinDay maps seconds since local midnight to pixels from the start
// of a day, interpolating over the visible slots only. ok is false when secs
// lies after the end of the last visible slot.
func (m *Mapper) OffsetWithinDay(secs int) (px int, ok bool) {
	slots := m.g.slots
	if len(slots) == 0 {
		return 0, false
	}
	first := slots[0].StartOffset
	last := slots[len(slots)-1].StartOffset

	if last+m.g.slotSeconds < secs {
		return 0, false
	}
	if first >= secs {
		return 0, true
	}

	visible := float64(m.g.slotSeconds * len(slots))
	ratio := float64(secs-first) / visible
	return int(math.Round(ratio * float64(m.g.dayWidth))), true
}

// PixelOffset returns the offset of ts from the start of the timeline. Use
// inclusive=true for interval starts and false for interval ends.
func (m *Mapper) PixelOffset(ts time.Time, inclusive bool) int {
	g := m.g
	if g.Empty() {
		return 0
	}
	if ts.Before(g.days[0].Timestamp) {
		return g.days[0].Left
	}
	idx := m.DayIndex(ts, inclusive)
	day := g.days[idx]

	// ts falls on a day that is not on the grid (hidden weekend, or past the
	// last day): pin it to the right edge of the day found. Like a time after
	// the last visible slot it takes the spacing along, except for an end at
	// exactly the next midnight.
	if next := day.Timestamp.AddDate(0, 0, 1); !ts.Before(next) {
		if (!inclusive && ts.Equal(next)) || idx == len(g.days)-1 {
			return day.Left + g.dayWidth
		}
		return day.Left + g.dayWidth + g.daySpacing
	}

	// Clock() on the local representation instead of epoch seconds so a DST
	// change during the day does not skew the offset.
	hour, minute, _ := ts.In(g.loc).Clock()

	var within int
	if hour == 0 && minute == 0 && !inclusive {
		within = g.dayWidth
	} else {
		px, ok := m.OffsetWithinDay((hour*60 + minute) * 60)
		if ok {
			within = px
		} else {
			// After the last visible slot: move to the start of the next day.
			// The last day gets no spacing so the timeline does not grow.
			within = g.dayWidth
			if idx < len(g.days)-1 {
				within += g.daySpacing
			}
		}
	}
	return day.Left + within
}

// Timestamp is the inverse of PixelOffset. The result has minute precision.
func (m *Mapper) Timestamp(px int) time.Time {
	g := m.g
	if g.Empty() {
		return time.Time{}
	}
	if px < 0 {
		px = 0
	}
	if px > g.timelineWidth {
		px = g.timelineWidth
	}

	stride := g.dayWidth + g.daySpacing
	idx := px / stride
	past := px - idx*stride
	if idx >= len(g.days) {
		idx = len(g.days) - 1
		past = g.dayWidth
	}

	var secs int
	if past < g.dayWidth {
		ratio := float64(past) / float64(g.dayWidth)
		visible := float64(g.slotSeconds * len(g.slots))
		secs = int(math.Round(ratio*visible)) + g.slots[0].StartOffset
	} else {
		secs = g.slots[len(g.slots)-1].StartOffset + g.slotSeconds
	}

	// Rebuild from calendar components. On the spring-forward instant this
	// lands on whatever time.Date normalizes the missing wall clock to.
	day := g.days[idx].Timestamp
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	return time.Date(day.Year(), day.Month(), day.Day(), hours, minutes, 0, 0, g.loc)
}

// RangeOffsets returns the left offset and width of r on the timeline.
func (m *Mapper) RangeOffsets(r DateRange) (left, width int) {
	left = m.PixelOffset(r.Start, true)
	right := m.PixelOffset(r.End, false)
	if right < left {
		return left, 0
	}
	return left, right - left
}
