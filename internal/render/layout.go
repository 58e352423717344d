// Package render turns a loaded free/busy snapshot into drawable output:
// SVG, PDF or a text table.
package render

import (
	"fbtimeline/internal/freebusy"
	"fbtimeline/internal/model"
	"fbtimeline/internal/timeline"
)

// DefaultLabelWidth is the width of the attendee name column.
const DefaultLabelWidth = 120

// Options configures one layout pass.
type Options struct {
	Place  timeline.PlaceOptions
	Header timeline.HeaderLayout
	// Viewport selects the days to materialize. A zero width shows the
	// whole timeline.
	Viewport timeline.Viewport
	Buffer   float64
	// Split keeps statuses apart in the summary row.
	Split      bool
	LabelWidth int
}

// Scene is everything a surface needs to draw one timeline.
type Scene struct {
	Grid      *timeline.Grid
	Header    timeline.HeaderLayout
	Attendees []model.Attendee
	RowHeight int

	LabelWidth int
	Width      int
	Height     int

	// Intervals and SumIntervals are the sources of Blocks and Summary;
	// PlacedRect.Index points into them.
	Intervals    []timeline.Interval
	SumIntervals []timeline.Interval
	Blocks       []timeline.PlacedRect
	Summary      []timeline.PlacedRect
}

// BodyTop is the y coordinate of the first attendee row.
func (s *Scene) BodyTop() int { return s.Header.Height }

// Layout places the snapshot's intervals and the aggregated summary row on g.
func Layout(g *timeline.Grid, snap *model.Snapshot, opts Options) *Scene {
	if opts.Header.Height == 0 {
		opts.Header = timeline.NewHeaderLayout(0, 0, 0, 1)
	}
	if opts.Place.RowHeight <= 0 {
		opts.Place.RowHeight = timeline.DefaultRowHeight
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = DefaultLabelWidth
	}
	if opts.Place.Period.Empty() {
		opts.Place.Period = snap.Period
	}

	sum := freebusy.SumBlocks(snap.Intervals, len(snap.Attendees), opts.Split)

	sc := &Scene{
		Grid:         g,
		Header:       opts.Header,
		Attendees:    snap.Attendees,
		RowHeight:    opts.Place.RowHeight,
		LabelWidth:   opts.LabelWidth,
		Width:        opts.LabelWidth + g.TimelineWidth(),
		Intervals:    snap.Intervals,
		SumIntervals: sum,
		Blocks:       timeline.PlaceIntervals(g, snap.Intervals, opts.Place),
		Summary:      timeline.PlaceSummary(g, sum, opts.Place),
	}
	sc.Height = sc.BodyTop() + timeline.BodyHeight(len(snap.Attendees), opts.Place.RowHeight, 1, 0)
	return sc
}

// Canvas is a timeline.Surface that draws a whole Scene.
type Canvas interface {
	timeline.Surface
	Begin(sc *Scene)
}

// Draw runs the full pipeline on c: materialize the days visible in the
// viewport, then draw the summary row and the attendee blocks on them.
func Draw(c Canvas, sc *Scene, opts Options) *timeline.Virtualizer {
	c.Begin(sc)

	vp := opts.Viewport
	if vp.Width <= 0 {
		vp = timeline.Viewport{Width: sc.Grid.TimelineWidth()}
	}
	v := timeline.NewVirtualizer(sc.Grid, c, opts.Buffer)
	v.Update(vp)

	timeline.Draw(c, visible(sc.Grid, v, sc.Summary))
	timeline.Draw(c, visible(sc.Grid, v, sc.Blocks))
	return v
}

// visible keeps rectangles that touch a materialized day.
func visible(g *timeline.Grid, v *timeline.Virtualizer, rects []timeline.PlacedRect) []timeline.PlacedRect {
	days := v.MaterializedDays()
	if len(days) == 0 {
		return nil
	}
	left := g.Day(days[0]).Left
	right := g.Day(days[len(days)-1]).Left + g.DayWidth()

	out := make([]timeline.PlacedRect, 0, len(rects))
	for _, r := range rects {
		if r.Left+r.Width < left || r.Left > right {
			continue
		}
		out = append(out, r)
	}
	return out
}
