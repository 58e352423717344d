package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/timeline"
)

// ErrEmptyBody is returned for an empty ICS payload.
var ErrEmptyBody = errors.New("ics: empty body")

// ParsedEvent is a VEVENT reduced to what free/busy needs. Recurrence
// expansion operates on this type.
type ParsedEvent struct {
	FeedID string

	UID     string
	Summary string
	Status  timeline.Status

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID in the event's own timezone
	IsOverride bool
}

// ParseICS parses one ICS payload. Events that cannot be read are logged
// and skipped. Cancelled events are dropped, except overrides: those
// cancel their series instance during expansion.
func ParseICS(feedID string, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", feedID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feedID, ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", feedID, "err", err)
			continue
		}
		if ev.Status == statusCancelled && !ev.IsOverride {
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", feedID, "event_count", len(events))
	return events, nil
}

// statusCancelled never leaves this package.
const statusCancelled timeline.Status = -2

func parseVEvent(feedID string, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{FeedID: feedID}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("uid %s: DTSTART: %w", out.UID, err)
	}
	out.Start = start

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart != nil {
		if vs := dtStart.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(dtStart.Value, "T") {
			out.AllDay = true
		}
	}

	// DTEND is optional: a date start spans one day, a date-time start is
	// a zero-length event.
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else if out.AllDay {
		out.End = out.Start.AddDate(0, 0, 1)
	} else {
		out.End = out.Start
	}

	out.Status = classify(ve)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := out.Start.Location()
		if tz := p.ICalParameters["TZID"]; len(tz) > 0 {
			if l, err := time.LoadLocation(tz[0]); err == nil {
				loc = l
			}
		}
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty("RECURRENCE-ID"); rid != nil {
		loc := out.Start.Location()
		if tz := rid.ICalParameters["TZID"]; len(tz) > 0 {
			if l, err := time.LoadLocation(tz[0]); err == nil {
				loc = l
			}
		}
		if t, err := parseICSTime(rid.Value, loc); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// classify maps a VEVENT onto a free/busy status. The Microsoft busy status
// wins when present; otherwise TRANSP and STATUS decide.
func classify(ve *ical.VEvent) timeline.Status {
	if p := ve.GetProperty("X-MICROSOFT-CDO-BUSYSTATUS"); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "FREE":
			return timeline.StatusFree
		case "TENTATIVE":
			return timeline.StatusTentative
		case "BUSY":
			return timeline.StatusBusy
		case "OOF":
			return timeline.StatusOutOfOffice
		case "WORKINGELSEWHERE":
			return timeline.StatusWorkingElsewhere
		}
	}

	if p := ve.GetProperty("STATUS"); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "CANCELLED":
			return statusCancelled
		case "TENTATIVE":
			return timeline.StatusTentative
		}
	}
	if p := ve.GetProperty("TRANSP"); p != nil && strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT") {
		return timeline.StatusFree
	}
	return timeline.StatusBusy
}

// parseICSTime parses DATE / DATE-TIME / UTC DATE-TIME values. Floating
// values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
