package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelOffsetFullDays(t *testing.T) {
	m := fullDayGrid(t, 2).Mapper()

	tests := []struct {
		name      string
		ts        time.Time
		inclusive bool
		expected  int
	}{
		{"first midnight", day(1), true, 0},
		{"noon", at(1, 12, 0), true, 720},
		{"half past nine", at(1, 9, 30), true, 570},
		{"next midnight as start", day(2), true, 1443},
		{"next midnight as end", day(2), false, 1440},
		{"second day noon", at(2, 12, 0), false, 1443 + 720},
		{"range end", day(3), false, 2883},
		{"past range end", at(5, 10, 0), true, 2883},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.PixelOffset(tt.ts, tt.inclusive))
		})
	}
}

func TestPixelOffsetWorkingHours(t *testing.T) {
	m := workingGrid(t, 1, 8).Mapper()

	tests := []struct {
		name      string
		ts        time.Time
		inclusive bool
		expected  int
	}{
		{"before working hours", at(1, 8, 0), true, 0},
		{"start of working hours", at(1, 9, 0), true, 0},
		{"ten", at(1, 10, 0), true, 60},
		{"end of working hours", at(1, 17, 0), false, 480},
		{"evening moves to next day", at(1, 18, 0), true, 483},
		{"friday evening stays on grid", at(5, 18, 0), true, 4*483 + 480},
		{"saturday pins to friday edge", at(6, 10, 0), true, 4*483 + 480},
		{"monday midnight as end", day(2), false, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.PixelOffset(tt.ts, tt.inclusive))
		})
	}

	// With a following week on the grid a weekend timestamp joins the gutter
	// before Monday, except for an end at exactly Saturday midnight.
	m = workingGrid(t, 1, 15).Mapper()
	tests = []struct {
		name      string
		ts        time.Time
		inclusive bool
		expected  int
	}{
		{"saturday start", at(6, 10, 0), true, 5 * 483},
		{"saturday end", at(6, 10, 0), false, 5 * 483},
		{"saturday midnight as end", day(6), false, 4*483 + 480},
		{"monday", day(8), true, 5 * 483},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.PixelOffset(tt.ts, tt.inclusive))
		})
	}
}

func TestOffsetWithinDay(t *testing.T) {
	m := workingGrid(t, 1, 3).Mapper()

	px, ok := m.OffsetWithinDay(8 * 3600)
	assert.True(t, ok)
	assert.Equal(t, 0, px)

	px, ok = m.OffsetWithinDay(13 * 3600)
	assert.True(t, ok)
	assert.Equal(t, 240, px)

	px, ok = m.OffsetWithinDay(17 * 3600)
	assert.True(t, ok)
	assert.Equal(t, 480, px)

	_, ok = m.OffsetWithinDay(17*3600 + 1)
	assert.False(t, ok)
}

func TestDayIndex(t *testing.T) {
	m := fullDayGrid(t, 3).Mapper()

	assert.Equal(t, 1, m.DayIndex(day(2), true))
	assert.Equal(t, 0, m.DayIndex(day(2), false))
	assert.Equal(t, 2, m.DayIndex(at(3, 0, 1), false))
	assert.Equal(t, 0, m.DayIndex(at(-3, 0, 0), true))
	assert.Equal(t, 2, m.DayIndex(day(20), true))
}

func TestPixelOffsetMonotonic(t *testing.T) {
	for name, g := range map[string]*Grid{
		"full days":     fullDayGrid(t, 4),
		"working hours": workingGrid(t, 1, 15),
	} {
		t.Run(name, func(t *testing.T) {
			m := g.Mapper()
			prev := -1
			for ts := day(1); ts.Before(day(15)); ts = ts.Add(15 * time.Minute) {
				px := m.PixelOffset(ts, true)
				assert.GreaterOrEqual(t, px, prev, ts.String())
				assert.LessOrEqual(t, px, g.TimelineWidth())
				prev = px
			}
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	g := fullDayGrid(t, 3)
	m := g.Mapper()

	// One pixel is a minute here; allow an extra minute for truncation.
	for ts := day(1); ts.Before(day(4)); ts = ts.Add(17 * time.Minute) {
		back := m.Timestamp(m.PixelOffset(ts, true))
		assert.InDelta(t, 0, back.Sub(ts).Seconds(), 120, ts.String())
	}

	wg := workingGrid(t, 1, 8)
	wm := wg.Mapper()
	for d := 1; d <= 5; d++ {
		for minute := 9 * 60; minute < 17*60; minute += 11 {
			ts := at(d, minute/60, minute%60)
			back := wm.Timestamp(wm.PixelOffset(ts, true))
			assert.InDelta(t, 0, back.Sub(ts).Seconds(), 120, ts.String())
		}
	}
}

func TestTimestampEdges(t *testing.T) {
	g := fullDayGrid(t, 2)
	m := g.Mapper()

	assert.Equal(t, day(1), m.Timestamp(0))
	assert.Equal(t, day(1), m.Timestamp(-50))
	assert.Equal(t, day(3), m.Timestamp(g.TimelineWidth()))
	assert.Equal(t, day(3), m.Timestamp(g.TimelineWidth()+500))
	assert.Equal(t, at(2, 12, 0), m.Timestamp(1443+720))

	// The spacing between two days maps to the end of the first.
	assert.Equal(t, day(2), m.Timestamp(1441))

	wm := workingGrid(t, 1, 3).Mapper()
	assert.Equal(t, at(1, 9, 0), wm.Timestamp(0))
	assert.Equal(t, at(1, 13, 0), wm.Timestamp(240))
	assert.Equal(t, at(1, 17, 0), wm.Timestamp(480))
}

func TestPixelOffsetAcrossDST(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	g, err := BuildGrid(GridOptions{
		Range: DateRange{
			Start: time.Date(2024, 3, 31, 0, 0, 0, 0, ams),
			End:   time.Date(2024, 4, 1, 0, 0, 0, 0, ams),
		},
		HourWidth: 60,
		Location:  ams,
	})
	require.NoError(t, err)
	m := g.Mapper()

	// Only 11 hours have elapsed since midnight, the offset follows the wall clock.
	noon := time.Date(2024, 3, 31, 12, 0, 0, 0, ams)
	assert.Equal(t, 720, m.PixelOffset(noon, true))
	assert.Equal(t, noon, m.Timestamp(720))

	// Same instant seen from another zone.
	assert.Equal(t, 720, m.PixelOffset(noon.UTC(), true))
}

func TestRangeOffsets(t *testing.T) {
	m := workingGrid(t, 1, 8).Mapper()

	left, width := m.RangeOffsets(DateRange{Start: at(2, 10, 0), End: at(2, 12, 0)})
	assert.Equal(t, 483+60, left)
	assert.Equal(t, 120, width)

	left, width = m.RangeOffsets(DateRange{Start: at(2, 12, 0), End: at(2, 10, 0)})
	assert.Equal(t, 483+180, left)
	assert.Equal(t, 0, width)
}
