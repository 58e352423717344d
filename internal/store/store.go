// Package store keeps the most recently loaded free/busy snapshot and the
// grid it is drawn on.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"fbtimeline/internal/config"
	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/model"
	"fbtimeline/internal/timeline"
)

// DefaultTTL is how long a loaded snapshot is served before the next
// request reloads it.
const DefaultTTL = 5 * time.Minute

// ErrNoAttendees is returned when there is nothing to load.
var ErrNoAttendees = errors.New("store: no attendees configured")

// Loader fetches every attendee's free/busy for a period.
type Loader interface {
	Load(ctx context.Context, attendees []model.Attendee, period timeline.DateRange) (*model.Snapshot, error)
}

// Store caches snapshots per period. Loads are serialized so concurrent
// requests for a cold period fetch the feeds once.
type Store struct {
	cfg    *config.Config
	loader Loader
	cache  *cache.Cache
	now    func() time.Time

	loadMu sync.Mutex

	hookMu sync.RWMutex
	hooks  []func(*model.Snapshot)
}

// New returns a Store. ttl <= 0 uses DefaultTTL.
func New(cfg *config.Config, loader Loader, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cfg:    cfg,
		loader: loader,
		cache:  cache.New(ttl, 2*ttl),
		now:    time.Now,
	}
}

// Config returns the configuration the store was built with.
func (s *Store) Config() *config.Config { return s.cfg }

// SetClock replaces the clock used to derive the current period.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Now returns the store clock.
func (s *Store) Now() time.Time { return s.now() }

// OnRefresh registers fn to run after every successful load.
func (s *Store) OnRefresh(fn func(*model.Snapshot)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func periodKey(p timeline.DateRange) string {
	return p.Start.Format(time.RFC3339) + "/" + p.End.Format(time.RFC3339)
}

// Snapshot returns the cached snapshot for the current period, loading it
// when missing or expired.
func (s *Store) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	period := s.cfg.Period(s.now())
	if v, ok := s.cache.Get(periodKey(period)); ok {
		return v.(*model.Snapshot), nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	// Another request may have loaded it while we waited.
	if v, ok := s.cache.Get(periodKey(period)); ok {
		return v.(*model.Snapshot), nil
	}
	return s.load(ctx, period)
}

// Refresh reloads the current period regardless of the cache.
func (s *Store) Refresh(ctx context.Context) (*model.Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx, s.cfg.Period(s.now()))
}

func (s *Store) load(ctx context.Context, period timeline.DateRange) (*model.Snapshot, error) {
	if len(s.cfg.Attendees) == 0 {
		return nil, ErrNoAttendees
	}
	started := time.Now()
	snap, err := s.loader.Load(ctx, s.cfg.Attendees, period)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(periodKey(period), snap)
	appLog.Info("snapshot stored",
		"period", periodKey(period),
		"intervals", len(snap.Intervals),
		"took", time.Since(started).Round(time.Millisecond).String(),
	)

	s.hookMu.RLock()
	hooks := append(([]func(*model.Snapshot))(nil), s.hooks...)
	s.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(snap)
	}
	return snap, nil
}

// Grid builds the grid for the current period. only overrides the
// configured working-hours-only flag.
func (s *Store) Grid(only bool) (*timeline.Grid, error) {
	opts := s.cfg.GridOptions(s.now())
	opts.WorkingHoursOnly = only
	return timeline.BuildGrid(opts)
}
