// Package refresh periodically reloads attendee feeds and refreshes the
// PNG preview.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/model"
)

// Refresher reloads the current snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*model.Snapshot, error)
}

// CaptureFunc renders the preview after a successful reload.
type CaptureFunc func(ctx context.Context) error

// Scheduler runs a reload on a cron schedule. Runs never overlap.
type Scheduler struct {
	refresher Refresher
	capture   CaptureFunc
	loc       *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

// New returns a Scheduler. capture may be nil.
func New(r Refresher, capture CaptureFunc) *Scheduler {
	return &Scheduler{refresher: r, capture: capture, loc: time.Local}
}

// SetLocation sets the timezone cron schedules are read in. Call it before
// Start; nil means time.Local.
func (s *Scheduler) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	s.loc = loc
}

// RunOnce reloads the snapshot and, if configured, captures the preview.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	started := time.Now()
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: reload: %w", err)
	}
	if s.capture != nil {
		if err := s.capture(ctx); err != nil {
			return fmt.Errorf("refresh: capture: %w", err)
		}
	}
	appLog.Info("refresh completed",
		"intervals", len(snap.Intervals),
		"failed", len(snap.Errors),
		"took", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

// Start schedules RunOnce on schedule (standard 5-field cron or descriptors
// like "@every 5m") until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", schedule, "timezone", s.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
