package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"fbtimeline/internal/timeline"
)

// rgb is a fill colour shared by the SVG and PDF surfaces.
type rgb struct{ R, G, B int }

func (c rgb) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

var palette = map[string]rgb{
	"free":             {255, 255, 255},
	"tentative":        {154, 184, 224},
	"busy":             {52, 101, 164},
	"outofoffice":      {117, 80, 123},
	"workingelsewhere": {115, 210, 22},
	"blur":             {186, 189, 182},
}

var (
	colorGrid     = rgb{211, 215, 207}
	colorWorkHour = rgb{250, 250, 245}
	colorOffHour  = rgb{238, 238, 236}
	colorToday    = rgb{252, 233, 79}
	colorText     = rgb{46, 52, 54}
)

// canvasState is what both drawing surfaces record before output: which
// day columns are live and the rectangles drawn onto them.
type canvasState struct {
	scene *Scene
	days  map[int]bool
	rects []timeline.PlacedRect
}

func (s *canvasState) Begin(sc *Scene) {
	s.scene = sc
	s.days = make(map[int]bool)
	s.rects = nil
}

func (s *canvasState) MaterializeDay(_ *timeline.Grid, index int) { s.days[index] = true }

func (s *canvasState) DematerializeDay(_ *timeline.Grid, index int) { delete(s.days, index) }

func (s *canvasState) DrawRect(r timeline.PlacedRect) { s.rects = append(s.rects, r) }

// liveDays returns the materialized day indexes in order.
func (s *canvasState) liveDays() []int {
	out := make([]int, 0, len(s.days))
	for i := range s.days {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// rectY converts a placed rectangle's row-relative top into canvas space.
func (s *canvasState) rectY(r timeline.PlacedRect) int {
	if r.OwnerRow < 0 {
		return s.scene.Header.SumTop + r.Top
	}
	return s.scene.BodyTop() + r.Top
}

// SVGSurface draws a Scene as a standalone SVG document.
type SVGSurface struct {
	canvasState
}

// NewSVGSurface returns an empty SVG surface.
func NewSVGSurface() *SVGSurface { return &SVGSurface{} }

// WriteTo writes the SVG document.
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

// String renders the SVG document.
func (s *SVGSurface) String() string {
	sc := s.scene
	if sc == nil {
		return ""
	}
	g := sc.Grid
	hdr := sc.Header
	lw := sc.LabelWidth

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		sc.Width, sc.Height, sc.Width, sc.Height))
	svg.WriteString("<style>")
	for _, class := range []string{"free", "tentative", "busy", "outofoffice", "workingelsewhere", "blur"} {
		svg.WriteString(fmt.Sprintf(".%s{fill:%s}", class, palette[class].hex()))
	}
	svg.WriteString(".blur{opacity:.6}.free{stroke:#888a85;stroke-width:1}</style>")
	svg.WriteString(fmt.Sprintf(`<rect class="background" x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`, sc.Width, sc.Height))

	for row, a := range sc.Attendees {
		y := sc.BodyTop() + row*sc.RowHeight
		svg.WriteString(fmt.Sprintf(`<text class="attendee" x="4" y="%d" font-size="12" fill="%s">%s</text>`,
			y+sc.RowHeight/2+4, colorText.hex(), escapeXML(a.Label())))
		svg.WriteString(fmt.Sprintf(`<line x1="0" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
			y+sc.RowHeight, sc.Width, y+sc.RowHeight, colorGrid.hex()))
	}

	for _, i := range s.liveDays() {
		day := g.Day(i)
		x := lw + day.Left
		svg.WriteString(fmt.Sprintf(`<g class="day" data-day="%d">`, i))
		if day.CurrentDay {
			svg.WriteString(fmt.Sprintf(`<rect class="today" x="%d" y="0" width="%d" height="%d" fill="%s"/>`,
				x, g.DayWidth(), hdr.DayRowHeight, colorToday.hex()))
		}
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="12" fill="%s">%s</text>`,
			x+4, hdr.DayRowHeight-6, colorText.hex(), escapeXML(day.Label)))

		for j, slot := range g.Slots() {
			sx := x + g.BorderSpacing() + j*(g.HourWidth()+g.BorderSpacing())
			fill := colorOffHour
			if slot.WorkingHour {
				fill = colorWorkHour
			}
			svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="%s"/>`,
				sx, sc.BodyTop(), g.HourWidth(), sc.Height-sc.BodyTop(), fill.hex(), colorGrid.hex()))
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
				sx+2, hdr.DayRowHeight+hdr.HourRowHeight-6, colorText.hex(), escapeXML(slot.Label)))
		}
		svg.WriteString("</g>")
	}

	for _, r := range s.rects {
		svg.WriteString(fmt.Sprintf(`<rect class="%s" x="%d" y="%d" width="%d" height="%d" data-row="%d"/>`,
			r.StatusClass, lw+r.Left, s.rectY(r), r.Width, r.Height, r.OwnerRow))
	}

	svg.WriteString("</svg>")
	return svg.String()
}

// escapeXML escapes special XML characters in a string to ensure valid SVG output.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
