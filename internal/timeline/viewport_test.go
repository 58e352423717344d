package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSurface struct {
	calls []string
	rects []PlacedRect
}

func (s *recordingSurface) MaterializeDay(_ *Grid, index int) {
	s.calls = append(s.calls, fmt.Sprintf("+%d", index))
}

func (s *recordingSurface) DematerializeDay(_ *Grid, index int) {
	s.calls = append(s.calls, fmt.Sprintf("-%d", index))
}

func (s *recordingSurface) DrawRect(r PlacedRect) {
	s.rects = append(s.rects, r)
}

func TestDayRangeBuffer(t *testing.T) {
	vp := Viewport{ScrollLeft: 1000, Width: 500}

	// Padded range is [500, 2000]: floor(500/1440)=0, ceil(2000/1440)=2.
	first, last, ok := DayRange(fullDayGrid(t, 2), vp, 3)
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, last, "clamped to the last day")

	first, last, ok = DayRange(fullDayGrid(t, 5), vp, 3)
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, last)
}

func TestDayRangeEmptyGrid(t *testing.T) {
	_, _, ok := DayRange(workingGrid(t, 6, 8), Viewport{Width: 500}, 3)
	assert.False(t, ok)
}

func TestVirtualizerOrder(t *testing.T) {
	s := &recordingSurface{}
	v := NewVirtualizer(fullDayGrid(t, 10), s, 1)

	d := v.Update(Viewport{ScrollLeft: 0, Width: 500})
	assert.Equal(t, []int{0, 1}, d.Materialize)
	assert.Empty(t, d.Dematerialize)

	s.calls = nil
	d = v.Update(Viewport{ScrollLeft: 5000, Width: 500})
	assert.Equal(t, []int{3, 4}, d.Materialize)
	assert.Equal(t, []int{0, 1}, d.Dematerialize)
	assert.Equal(t, []string{"+3", "+4", "-0", "-1"}, s.calls)
	assert.Equal(t, []int{3, 4}, v.MaterializedDays())

	// Nothing moves, nothing changes.
	assert.True(t, v.Update(Viewport{ScrollLeft: 5000, Width: 500}).Empty())
}

func TestVirtualizerCoversViewport(t *testing.T) {
	g := fullDayGrid(t, 14)
	v := NewVirtualizer(g, nil, 0)

	for scroll := 0; scroll < g.TimelineWidth(); scroll += 397 {
		vp := Viewport{ScrollLeft: scroll, Width: 800}
		v.Update(vp)
		for i, d := range g.Days() {
			visible := d.Left < vp.ScrollLeft+vp.Width && d.Left+g.DayWidth() > vp.ScrollLeft
			if visible {
				assert.True(t, v.Materialized(i), "day %d at scroll %d", i, scroll)
			}
		}
	}
}

func TestVirtualizerInstall(t *testing.T) {
	s := &recordingSurface{}
	v := NewVirtualizer(fullDayGrid(t, 4), s, 1)
	v.Update(Viewport{ScrollLeft: 0, Width: 500})

	s.calls = nil
	next := workingGrid(t, 1, 8)
	v.Install(next)
	assert.Equal(t, []string{"-0", "-1"}, s.calls)
	assert.Same(t, next, v.Grid())
	assert.Empty(t, v.MaterializedDays())
	assert.False(t, v.Materialized(-1))
	assert.False(t, v.Materialized(99))
}

func TestViewedAndFocusRange(t *testing.T) {
	m := fullDayGrid(t, 5).Mapper()
	vp := Viewport{ScrollLeft: 1443, Width: 1440}

	viewed := m.ViewedRange(vp)
	assert.Equal(t, day(2), viewed.Start)
	assert.Equal(t, day(3), viewed.End)

	// Centre 2163 is 0.499 into day 1 which is slot 11.
	focus := m.FocusRange(vp)
	assert.Equal(t, at(2, 11, 0), focus.Start)
	assert.Equal(t, at(2, 12, 0), focus.End)
}

func TestScrollLeftFor(t *testing.T) {
	m := fullDayGrid(t, 5).Mapper()

	assert.Equal(t, 2163-250, m.ScrollLeftFor(at(2, 12, 0), 500))
	assert.Equal(t, 0, m.ScrollLeftFor(at(1, 1, 0), 500))
	assert.Equal(t, 2163-250, m.ScrollLeftForRange(DateRange{Start: at(2, 11, 0), End: at(2, 13, 0)}, 500))
}

func TestSnapshotFocusSurvivesRebuild(t *testing.T) {
	before := fullDayGrid(t, 5)
	vp := Viewport{ScrollLeft: 3000, Width: 1000}
	snap := before.Mapper().CaptureSnapshot(vp, nil)
	require.False(t, snap.SelectionInView)
	assert.Equal(t, at(3, 10, 0), snap.Focus.Start)

	after, err := BuildGrid(GridOptions{
		Range:         before.Range(),
		HourWidth:     60,
		BorderSpacing: 1,
		DaySpacing:    3,
		Location:      before.Location(),
	})
	require.NoError(t, err)

	m := after.Mapper()
	scroll := m.RestoreSnapshot(snap, vp.Width, nil)
	assert.Equal(t, snap.Focus, m.FocusRange(Viewport{ScrollLeft: scroll, Width: vp.Width}))
}

func TestSnapshotKeepsSelectionPosition(t *testing.T) {
	m := fullDayGrid(t, 5).Mapper()
	vp := Viewport{ScrollLeft: 1443, Width: 1440}
	sel := DateRange{Start: at(2, 10, 0), End: at(2, 11, 0)}

	snap := m.CaptureSnapshot(vp, &sel)
	require.True(t, snap.SelectionInView)
	assert.Equal(t, -120, snap.DiffOffset)
	assert.Equal(t, vp.ScrollLeft, m.RestoreSnapshot(snap, vp.Width, &sel))

	// A selection out of view falls back to the focus.
	far := DateRange{Start: at(5, 10, 0), End: at(5, 11, 0)}
	snap = m.CaptureSnapshot(vp, &far)
	assert.False(t, snap.SelectionInView)
	assert.Equal(t, at(2, 11, 0), snap.Focus.Start)
}

func TestHeaderLayout(t *testing.T) {
	h := NewHeaderLayout(64, 24, 10, 1)
	assert.Equal(t, 28, h.DayRowHeight)
	assert.Equal(t, 53, h.SumTop)

	d := NewHeaderLayout(0, 0, 0, 0)
	assert.Equal(t, DefaultHeaderHeight, d.Height)
	assert.Equal(t, DefaultHeaderHeight-DefaultHeaderSumHeight-DefaultHeaderHoursHeight, d.DayRowHeight)

	assert.Equal(t, 100, BodyHeight(3, 30, 10, 50))
	assert.Equal(t, 200, BodyHeight(1, 30, 0, 200))
}
