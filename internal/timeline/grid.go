// Package timeline implements the free/busy timeline geometry: the day/hour
// grid, timestamp <-> pixel mapping, viewport virtualization and interval
// placement. Everything here is pure computation; drawing is delegated to a
// Surface.
package timeline

import (
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Defaults applied by BuildGrid for zero-valued options.
const (
	DefaultSlotDuration    = time.Hour
	DefaultHourWidth       = 60
	DefaultDaySpacing      = 3
	DefaultDayLabelLayout  = "Monday 2 January 2006"
	DefaultHourLabelLayout = "15:04"
)

// GridOptions are the inputs of BuildGrid.
type GridOptions struct {
	Range            DateRange
	SlotDuration     time.Duration
	WorkingHours     WorkingHours
	WorkingHoursOnly bool

	HourWidth     int
	DaySpacing    int
	BorderSpacing int

	// Location is the calendar used to find local midnights. Defaults to
	// time.Local.
	Location *time.Location
	// Now marks the current day. The zero value disables the marker.
	Now time.Time

	DayLabelLayout  string
	HourLabelLayout string
}

// DayEntry is one visible day column.
type DayEntry struct {
	Label      string    `json:"label"`
	CurrentDay bool      `json:"current_day"`
	Timestamp  time.Time `json:"timestamp"` // local midnight
	Left       int       `json:"left"`
}

// HourSlot is one visible slot, shared by every day.
type HourSlot struct {
	Label       string `json:"label"`
	StartOffset int    `json:"start_offset"` // seconds since local midnight
	WorkingHour bool   `json:"working_hour"`
}

// Grid is the immutable result of BuildGrid. Rebuilding produces a new Grid;
// callers swap the reference instead of mutating.
type Grid struct {
	days  []DayEntry
	slots []HourSlot

	slotSeconds   int
	hourWidth     int
	dayWidth      int
	daySpacing    int
	borderSpacing int
	timelineWidth int

	loc              *time.Location
	rng              DateRange
	workingHours     WorkingHours
	workingHoursOnly bool
}

// BuildGrid computes the visible days and slots for opts.
func BuildGrid(opts GridOptions) (*Grid, error) {
	if opts.SlotDuration == 0 {
		opts.SlotDuration = DefaultSlotDuration
	}
	slotSeconds := int(opts.SlotDuration / time.Second)
	if slotSeconds <= 0 || secondsPerDay%slotSeconds != 0 || opts.SlotDuration%time.Second != 0 {
		return nil, ErrSlotDuration
	}
	if opts.HourWidth <= 0 {
		opts.HourWidth = DefaultHourWidth
	}
	if opts.DaySpacing < 0 {
		opts.DaySpacing = 0
	}
	if opts.BorderSpacing < 0 {
		opts.BorderSpacing = 0
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DayLabelLayout == "" {
		opts.DayLabelLayout = DefaultDayLabelLayout
	}
	if opts.HourLabelLayout == "" {
		opts.HourLabelLayout = DefaultHourLabelLayout
	}

	g := &Grid{
		slotSeconds:      slotSeconds,
		hourWidth:        opts.HourWidth,
		daySpacing:       opts.DaySpacing,
		borderSpacing:    opts.BorderSpacing,
		loc:              opts.Location,
		rng:              opts.Range,
		workingHours:     opts.WorkingHours,
		workingHoursOnly: opts.WorkingHoursOnly,
	}

	g.slots = buildSlots(opts, slotSeconds)
	if len(g.slots) == 0 {
		return g, nil
	}
	g.dayWidth = (g.hourWidth+g.borderSpacing)*len(g.slots) + g.borderSpacing

	if opts.Range.Empty() {
		return g, nil
	}

	var today time.Time
	if !opts.Now.IsZero() {
		today = midnight(opts.Now.In(g.loc))
	}

	// Iterate from noon: a DST switch at 00:00 (e.g. Brazil) would otherwise
	// skip or repeat a date.
	start := opts.Range.Start.In(g.loc)
	anchor := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, g.loc)
	for i := 0; ; i++ {
		day := midnight(anchor.AddDate(0, 0, i))
		if !day.Before(opts.Range.End) {
			break
		}
		if opts.WorkingHoursOnly && !opts.WorkingHours.IsWorkDay(day.Weekday()) {
			continue
		}
		g.days = append(g.days, DayEntry{
			Label:      day.Format(opts.DayLabelLayout),
			CurrentDay: !today.IsZero() && day.Equal(today),
			Timestamp:  day,
			Left:       len(g.days) * (g.dayWidth + g.daySpacing),
		})
	}

	if n := len(g.days); n > 0 {
		g.timelineWidth = (g.dayWidth+g.daySpacing)*n - g.daySpacing
	}
	return g, nil
}

func buildSlots(opts GridOptions, slotSeconds int) []HourSlot {
	slotMinutes := slotSeconds / 60
	perDay := secondsPerDay / slotSeconds

	first, last := 0, perDay
	if slotMinutes > 0 {
		first = opts.WorkingHours.StartMinute / slotMinutes
		last = (opts.WorkingHours.EndMinute + slotMinutes - 1) / slotMinutes
	}

	slots := make([]HourSlot, 0, perDay)
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < perDay; i++ {
		working := i >= first && i < last
		if opts.WorkingHoursOnly && !working {
			continue
		}
		offset := i * slotSeconds
		slots = append(slots, HourSlot{
			Label:       base.Add(time.Duration(offset) * time.Second).Format(opts.HourLabelLayout),
			StartOffset: offset,
			WorkingHour: working,
		})
	}
	return slots
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Days returns a copy of the visible day list.
func (g *Grid) Days() []DayEntry {
	return append([]DayEntry(nil), g.days...)
}

// Day returns the i-th visible day.
func (g *Grid) Day(i int) DayEntry { return g.days[i] }

// NumDays is the number of visible days.
func (g *Grid) NumDays() int { return len(g.days) }

// Slots returns a copy of the visible slot list.
func (g *Grid) Slots() []HourSlot {
	return append([]HourSlot(nil), g.slots...)
}

// NumSlots is the number of visible slots per day.
func (g *Grid) NumSlots() int { return len(g.slots) }

// Empty reports whether the grid has nothing to show.
func (g *Grid) Empty() bool { return len(g.days) == 0 || len(g.slots) == 0 }

func (g *Grid) SlotDuration() time.Duration { return time.Duration(g.slotSeconds) * time.Second }
func (g *Grid) HourWidth() int               { return g.hourWidth }
func (g *Grid) DayWidth() int                { return g.dayWidth }
func (g *Grid) DaySpacing() int              { return g.daySpacing }
func (g *Grid) BorderSpacing() int           { return g.borderSpacing }
func (g *Grid) TimelineWidth() int           { return g.timelineWidth }
func (g *Grid) Location() *time.Location     { return g.loc }
func (g *Grid) Range() DateRange             { return g.rng }
func (g *Grid) WorkingHours() WorkingHours   { return g.workingHours }
func (g *Grid) WorkingHoursOnly() bool       { return g.workingHoursOnly }

// Mapper returns the coordinate mapper bound to this grid.
func (g *Grid) Mapper() *Mapper { return &Mapper{g: g} }
