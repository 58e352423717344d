package timeline

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrSlotDuration is returned when the slot duration does not evenly
	// divide a 24h day.
	ErrSlotDuration = errors.New("timeline: slot duration must evenly divide 24h")

	// ErrInvertedRange is returned by NewDateRange when end is before start.
	ErrInvertedRange = errors.New("timeline: range end is before start")
)

// DateRange is the half-open period [Start, End) covered by a timeline.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange returns a forward range or ErrInvertedRange.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, ErrInvertedRange
	}
	return DateRange{Start: start, End: end}, nil
}

// Empty reports whether the range covers no time at all.
func (r DateRange) Empty() bool {
	return !r.End.After(r.Start)
}

// Duration returns End - Start, or zero for empty ranges.
func (r DateRange) Duration() time.Duration {
	if r.Empty() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Overlaps reports whether the two half-open ranges share any instant.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Contains reports whether t lies in [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Midpoint returns the instant halfway between Start and End.
func (r DateRange) Midpoint() time.Time {
	return r.Start.Add(r.End.Sub(r.Start) / 2)
}

// WorkingHours describes the configured working window of a day and the
// weekdays considered working days.
type WorkingHours struct {
	// StartMinute and EndMinute are minutes since local midnight (0-1440).
	StartMinute int `json:"start_minute" yaml:"start_minute"`
	EndMinute   int `json:"end_minute" yaml:"end_minute"`
	// WorkDays holds weekday numbers, 0 = Sunday.
	WorkDays []int `json:"work_days" yaml:"work_days"`
}

// DefaultWorkingHours is 9:00-17:00, Monday to Friday.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{StartMinute: 9 * 60, EndMinute: 17 * 60, WorkDays: []int{1, 2, 3, 4, 5}}
}

// IsWorkDay reports whether wd is one of the configured work days.
func (w WorkingHours) IsWorkDay(wd time.Weekday) bool {
	for _, d := range w.WorkDays {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// HiddenDuration is the length of the daily band outside working hours.
func (w WorkingHours) HiddenDuration() time.Duration {
	return time.Duration(w.StartMinute+(24*60-w.EndMinute)) * time.Minute
}

// Status is a free/busy classification. The numeric values follow the
// MAPI busy status codes.
type Status int

const (
	StatusUnknown          Status = -1
	StatusFree             Status = 0
	StatusTentative        Status = 1
	StatusBusy             Status = 2
	StatusOutOfOffice      Status = 3
	StatusWorkingElsewhere Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "Free"
	case StatusTentative:
		return "Tentative"
	case StatusBusy:
		return "Busy"
	case StatusOutOfOffice:
		return "OutOfOffice"
	case StatusWorkingElsewhere:
		return "WorkingElsewhere"
	default:
		return "Unknown"
	}
}

// Class returns the style class used by rendering surfaces. Unknown
// intervals are drawn blurred.
func (s Status) Class() string {
	if s == StatusUnknown {
		return "blur"
	}
	return strings.ToLower(s.String())
}

// Interval is a single free/busy span owned by one attendee row.
type Interval struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Status   Status    `json:"status"`
	OwnerRow int       `json:"owner_row"`
}

// Malformed reports whether the interval carries unusable bounds.
func (iv Interval) Malformed() bool {
	return iv.Start.IsZero() || iv.End.IsZero() || iv.End.Before(iv.Start)
}

// PlacedRect is the pixel rectangle computed for one interval.
type PlacedRect struct {
	Left        int    `json:"left"`
	Width       int    `json:"width"`
	Top         int    `json:"top"`
	Height      int    `json:"height"`
	StatusClass string `json:"status"`
	// Index is the position of the source interval in the input slice.
	Index int `json:"index"`
	// OwnerRow is -1 for the summary row.
	OwnerRow int `json:"owner_row"`
}
