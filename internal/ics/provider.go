package ics

import (
	"context"
	"fmt"
	"sync"
	"time"

	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/model"
	"fbtimeline/internal/timeline"
)

// Provider loads every attendee's feed and turns it into timeline
// intervals, one row per attendee.
type Provider struct {
	fetcher *Fetcher
	loc     *time.Location
	maxOcc  int
	now     func() time.Time
}

// NewProvider returns a Provider converting times to loc (nil for
// time.Local).
func NewProvider(f *Fetcher, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{fetcher: f, loc: loc, now: time.Now}
}

// SetMaxOccurrences caps the instances expanded per recurring event. n <= 0
// restores the default of 5000.
func (p *Provider) SetMaxOccurrences(n int) { p.maxOcc = n }

// Load fetches all feeds concurrently. A feed that cannot be fetched or
// parsed is reported in Snapshot.Errors and shows as a single Unknown
// interval spanning the whole period. The error return is reserved for a
// cancelled context.
func (p *Provider) Load(ctx context.Context, attendees []model.Attendee, period timeline.DateRange) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Period:      period,
		Attendees:   append([]model.Attendee(nil), attendees...),
		Occurrences: make([][]model.Occurrence, len(attendees)),
		Errors:      make(map[string]error),
	}

	errs := make([]error, len(attendees))
	var wg sync.WaitGroup
	for i, a := range attendees {
		i, a := i, a // per-iteration copies; go.mod targets go 1.21
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.Occurrences[i], errs[i] = p.loadOne(ctx, a, period)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for row, a := range attendees {
		if errs[row] != nil {
			snap.Errors[a.ID] = errs[row]
			appLog.Error("attendee feed unavailable", errs[row], "id", a.ID)
			snap.Intervals = append(snap.Intervals, timeline.Interval{
				Start:    period.Start,
				End:      period.End,
				Status:   timeline.StatusUnknown,
				OwnerRow: row,
			})
			continue
		}
		for _, o := range snap.Occurrences[row] {
			snap.Intervals = append(snap.Intervals, o.Interval(row))
		}
	}

	snap.LoadedAt = p.now()
	appLog.Info("free/busy loaded",
		"attendees", len(attendees),
		"intervals", len(snap.Intervals),
		"failed", len(snap.Errors),
	)
	return snap, nil
}

func (p *Provider) loadOne(ctx context.Context, a model.Attendee, period timeline.DateRange) ([]model.Occurrence, error) {
	res, err := p.fetcher.Fetch(ctx, Feed{ID: a.ID, URL: a.URL})
	if err != nil {
		return nil, err
	}
	events, err := ParseICS(a.ID, res.Body)
	if err != nil {
		return nil, err
	}
	exp, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation:        p.loc,
		RangeStart:             period.Start,
		RangeEnd:               period.End,
		MaxOccurrencesPerEvent: p.maxOcc,
	})
	if err != nil {
		return nil, fmt.Errorf("ics: expand %s: %w", a.ID, err)
	}
	return exp.Occurrences, nil
}
