package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"fbtimeline/internal/timeline"
)

var statusColors = map[string]*color.Color{
	"tentative":        color.New(color.FgCyan),
	"busy":             color.New(color.FgBlue, color.Bold),
	"outofoffice":      color.New(color.FgMagenta, color.Bold),
	"workingelsewhere": color.New(color.FgGreen),
	"blur":             color.New(color.FgHiBlack),
}

const tableTimeLayout = "Mon 02 Jan 15:04"

// WriteTable prints every placed rectangle of sc, summary row first.
func WriteTable(w io.Writer, sc *Scene, colored bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Row", "Attendee", "Status", "Start", "End", "Left", "Width"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	add := func(rects []timeline.PlacedRect, sources []timeline.Interval) {
		for _, r := range rects {
			iv := sources[r.Index]
			row, name := "sum", "all attendees"
			if r.OwnerRow >= 0 {
				row = strconv.Itoa(r.OwnerRow)
				if r.OwnerRow < len(sc.Attendees) {
					name = sc.Attendees[r.OwnerRow].Label()
				}
			}
			data = append(data, []string{
				row,
				name,
				statusLabel(iv.Status, r.StatusClass, colored),
				iv.Start.Format(tableTimeLayout),
				iv.End.Format(tableTimeLayout),
				strconv.Itoa(r.Left),
				strconv.Itoa(r.Width),
			})
		}
	}
	add(sc.Summary, sc.SumIntervals)
	add(sc.Blocks, sc.Intervals)

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d attendees, %d days, %d blocks\n", len(sc.Attendees), sc.Grid.NumDays(), len(sc.Blocks))
	return err
}

func statusLabel(s timeline.Status, class string, colored bool) string {
	c, ok := statusColors[class]
	if !colored || !ok {
		return s.String()
	}
	return c.Sprint(s.String())
}
