package model

import (
	"time"

	"fbtimeline/internal/timeline"
)

// Attendee is one row on the timeline. The row index is the attendee's
// position in the configured list.
type Attendee struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// URL is the free/busy or calendar ICS feed. file:// and plain paths
	// are read from disk.
	URL string `yaml:"url" json:"-"`
}

// Label returns the display name, falling back to the ID.
func (a Attendee) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Occurrence represents a single concrete busy span of one attendee
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	AttendeeID string
	UID        string

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary string
	AllDay  bool
	Status  timeline.Status

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// Interval converts the occurrence for placement on row.
func (o Occurrence) Interval(row int) timeline.Interval {
	return timeline.Interval{Start: o.Start, End: o.End, Status: o.Status, OwnerRow: row}
}

// Snapshot is the loaded free/busy state of every attendee for one period.
type Snapshot struct {
	Period    timeline.DateRange
	Attendees []Attendee
	// Occurrences holds one slice per attendee row.
	Occurrences [][]Occurrence
	// Intervals is every row flattened, OwnerRow set, in row order.
	Intervals []timeline.Interval
	// Errors maps attendee IDs to the reason their feed failed.
	Errors   map[string]error
	LoadedAt time.Time
}

// Owners returns the row indexes of every attendee.
func (s *Snapshot) Owners() []int {
	rows := make([]int, len(s.Attendees))
	for i := range rows {
		rows[i] = i
	}
	return rows
}
