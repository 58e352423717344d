package render

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// PDFSurface draws a Scene onto a single PDF page sized to the timeline.
// One pixel becomes one point.
type PDFSurface struct {
	canvasState
}

// NewPDFSurface returns an empty PDF surface.
func NewPDFSurface() *PDFSurface { return &PDFSurface{} }

// WriteTo renders the page and writes the PDF document.
func (s *PDFSurface) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := s.build().Output(cw)
	return cw.n, err
}

func (s *PDFSurface) build() *fpdf.Fpdf {
	sc := s.scene
	width, height := 1.0, 1.0
	if sc != nil && sc.Width > 0 {
		width, height = float64(sc.Width), float64(sc.Height)
	}
	orientation := "P"
	if width > height {
		orientation = "L"
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	if sc == nil {
		return pdf
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	g := sc.Grid
	hdr := sc.Header
	lw := float64(sc.LabelWidth)
	bodyTop := float64(sc.BodyTop())

	setFill := func(c rgb) { pdf.SetFillColor(c.R, c.G, c.B) }
	setText := func(c rgb) { pdf.SetTextColor(c.R, c.G, c.B) }
	pdf.SetDrawColor(colorGrid.R, colorGrid.G, colorGrid.B)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "", 9)
	setText(colorText)
	for row, a := range sc.Attendees {
		y := bodyTop + float64(row*sc.RowHeight)
		pdf.Text(4, y+float64(sc.RowHeight)/2+3, tr(a.Label()))
		pdf.Line(0, y+float64(sc.RowHeight), width, y+float64(sc.RowHeight))
	}

	for _, i := range s.liveDays() {
		day := g.Day(i)
		x := lw + float64(day.Left)
		if day.CurrentDay {
			setFill(colorToday)
			pdf.Rect(x, 0, float64(g.DayWidth()), float64(hdr.DayRowHeight), "F")
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.Text(x+4, float64(hdr.DayRowHeight)-6, tr(day.Label))

		pdf.SetFont("Helvetica", "", 7)
		for j, slot := range g.Slots() {
			sx := x + float64(g.BorderSpacing()+j*(g.HourWidth()+g.BorderSpacing()))
			if slot.WorkingHour {
				setFill(colorWorkHour)
			} else {
				setFill(colorOffHour)
			}
			pdf.Rect(sx, bodyTop, float64(g.HourWidth()), height-bodyTop, "FD")
			pdf.Text(sx+2, float64(hdr.DayRowHeight+hdr.HourRowHeight)-6, slot.Label)
		}
	}

	for _, r := range s.rects {
		c, ok := palette[r.StatusClass]
		if !ok {
			c = palette["busy"]
		}
		setFill(c)
		if r.StatusClass == "blur" {
			pdf.SetAlpha(0.6, "Normal")
		}
		pdf.Rect(lw+float64(r.Left), float64(s.rectY(r)), float64(r.Width), float64(r.Height), "F")
		if r.StatusClass == "blur" {
			pdf.SetAlpha(1, "Normal")
		}
	}
	return pdf
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
