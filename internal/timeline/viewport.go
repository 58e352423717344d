package timeline

import (
	"math"
	"sync"
	"time"
)

// DefaultBufferMultiplier materializes five viewport widths worth of days.
const DefaultBufferMultiplier = 5

// Surface is the rendering collaborator. It turns day columns and placed
// rectangles into something drawable; the geometry never touches it
// directly except through a Virtualizer or a layout pass.
type Surface interface {
	MaterializeDay(g *Grid, index int)
	DematerializeDay(g *Grid, index int)
	DrawRect(r PlacedRect)
}

// Viewport is the scroll position and width reported by the surface.
type Viewport struct {
	ScrollLeft int `json:"scroll_left"`
	Width      int `json:"width"`
}

// Delta lists the day indexes whose materialized state must change.
type Delta struct {
	Materialize   []int `json:"materialize"`
	Dematerialize []int `json:"dematerialize"`
}

// Empty reports whether nothing changes.
func (d Delta) Empty() bool {
	return len(d.Materialize) == 0 && len(d.Dematerialize) == 0
}

// DayRange returns the inclusive range of day indexes that should be
// materialized for vp. ok is false for an empty grid.
func DayRange(g *Grid, vp Viewport, buffer float64) (first, last int, ok bool) {
	if g.Empty() || g.dayWidth <= 0 {
		return 0, 0, false
	}
	if buffer < 1 {
		buffer = 1
	}
	outside := (buffer - 1) * float64(vp.Width)
	startPx := float64(vp.ScrollLeft) - outside/2
	endPx := float64(vp.ScrollLeft+vp.Width) + outside/2

	first = int(math.Floor(startPx / float64(g.dayWidth)))
	last = int(math.Ceil(endPx / float64(g.dayWidth)))
	if first < 0 {
		first = 0
	}
	if last > len(g.days)-1 {
		last = len(g.days) - 1
	}
	return first, last, true
}

// ComputeDelta compares the desired day range with the materialized flags
// (indexed like the grid's days; a short slice counts as unmaterialized).
func ComputeDelta(g *Grid, materialized []bool, vp Viewport, buffer float64) Delta {
	var d Delta
	first, last, ok := DayRange(g, vp, buffer)
	for i := range g.days {
		on := i < len(materialized) && materialized[i]
		in := ok && i >= first && i <= last
		switch {
		case in && !on:
			d.Materialize = append(d.Materialize, i)
		case !in && on:
			d.Dematerialize = append(d.Dematerialize, i)
		}
	}
	return d
}

// Virtualizer tracks which days of the installed grid currently have
// visual nodes on the surface.
type Virtualizer struct {
	mu           sync.Mutex
	grid         *Grid
	materialized []bool
	buffer       float64
	surface      Surface
}

// NewVirtualizer binds a grid and surface. buffer <= 0 selects
// DefaultBufferMultiplier.
func NewVirtualizer(g *Grid, s Surface, buffer float64) *Virtualizer {
	if buffer <= 0 {
		buffer = DefaultBufferMultiplier
	}
	return &Virtualizer{
		grid:         g,
		materialized: make([]bool, g.NumDays()),
		buffer:       buffer,
		surface:      s,
	}
}

// Grid returns the installed grid.
func (v *Virtualizer) Grid() *Grid {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grid
}

// Install swaps in a rebuilt grid. Days of the previous grid are torn down
// first so no stale column survives the swap.
func (v *Virtualizer) Install(g *Grid) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, on := range v.materialized {
		if on && v.surface != nil {
			v.surface.DematerializeDay(v.grid, i)
		}
	}
	v.grid = g
	v.materialized = make([]bool, g.NumDays())
}

// Update runs one virtualization pass for vp. New days are materialized
// before stale ones are removed so the visible area never goes blank.
func (v *Virtualizer) Update(vp Viewport) Delta {
	v.mu.Lock()
	defer v.mu.Unlock()

	d := ComputeDelta(v.grid, v.materialized, vp, v.buffer)
	for _, i := range d.Materialize {
		if v.surface != nil {
			v.surface.MaterializeDay(v.grid, i)
		}
		v.materialized[i] = true
	}
	for _, i := range d.Dematerialize {
		if v.surface != nil {
			v.surface.DematerializeDay(v.grid, i)
		}
		v.materialized[i] = false
	}
	return d
}

// Materialized reports whether day i currently has visual nodes.
func (v *Virtualizer) Materialized(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return i >= 0 && i < len(v.materialized) && v.materialized[i]
}

// MaterializedDays lists the materialized day indexes in ascending order.
func (v *Virtualizer) MaterializedDays() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []int
	for i, on := range v.materialized {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// ViewedRange is the period between the left and right viewport edges.
func (m *Mapper) ViewedRange(vp Viewport) DateRange {
	return DateRange{
		Start: m.Timestamp(vp.ScrollLeft),
		End:   m.Timestamp(vp.ScrollLeft + vp.Width),
	}
}

// FocusRange returns the slot under the centre of the viewport.
func (m *Mapper) FocusRange(vp Viewport) DateRange {
	g := m.g
	if g.Empty() {
		return DateRange{}
	}
	focus := float64(vp.ScrollLeft) + float64(vp.Width)/2
	pos := focus / float64(g.dayWidth+g.daySpacing)
	idx := int(math.Floor(pos))
	ratio := pos - float64(idx)
	if idx < 0 {
		idx, ratio = 0, 0
	}
	if idx >= len(g.days) {
		idx, ratio = len(g.days)-1, 0.999999
	}

	slot := int(math.Floor(float64(len(g.slots)) * ratio))
	if slot >= len(g.slots) {
		slot = len(g.slots) - 1
	}

	day := g.days[idx].Timestamp
	offset := g.slots[slot].StartOffset
	start := time.Date(day.Year(), day.Month(), day.Day(), offset/3600, (offset%3600)/60, 0, 0, g.loc)
	return DateRange{Start: start, End: start.Add(g.SlotDuration())}
}

// ScrollLeftFor returns the scroll offset that centres t in a viewport of
// the given width.
func (m *Mapper) ScrollLeftFor(t time.Time, width int) int {
	left := m.PixelOffset(t, true) - width/2
	if left < 0 {
		return 0
	}
	return left
}

// ScrollLeftForRange centres the midpoint of r.
func (m *Mapper) ScrollLeftForRange(r DateRange, width int) int {
	return m.ScrollLeftFor(r.Midpoint(), width)
}

// Snapshot remembers what the viewport was showing so the same area can be
// brought back after the grid is rebuilt.
type Snapshot struct {
	SelectionInView bool      `json:"selection_in_view"`
	Focus           DateRange `json:"focus"`
	// DiffOffset is selection start minus viewport centre, in pixels.
	DiffOffset int `json:"diff_offset"`
}

// CaptureSnapshot records the viewport state. selection may be nil.
func (m *Mapper) CaptureSnapshot(vp Viewport, selection *DateRange) Snapshot {
	var s Snapshot
	if selection != nil && m.ViewedRange(vp).Overlaps(*selection) {
		s.SelectionInView = true
		center := vp.ScrollLeft + vp.Width/2
		s.DiffOffset = m.PixelOffset(selection.Start, true) - center
		return s
	}
	s.Focus = m.FocusRange(vp)
	return s
}

// RestoreSnapshot returns the scroll offset on m's grid that shows what s
// captured. A visible selection keeps its position within the viewport;
// otherwise the former focus is centred.
func (m *Mapper) RestoreSnapshot(s Snapshot, width int, selection *DateRange) int {
	if s.SelectionInView && selection != nil {
		center := m.PixelOffset(selection.Start, true) - s.DiffOffset
		return m.ScrollLeftFor(m.Timestamp(center), width)
	}
	return m.ScrollLeftForRange(s.Focus, width)
}
