package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"fbtimeline/internal/model"
	"fbtimeline/internal/timeline"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the timeline API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// RateLimitConfig bounds API requests per client IP. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps"`
	Burst int     `yaml:"burst" json:"burst"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the timeline API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone whose calendar defines days and
	// working hours (e.g. "Europe/Amsterdam").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a standard 5-field cron schedule for reloading feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// RangeDays is the number of days shown starting today; BackfillDays
	// extends the period into the past.
	RangeDays    int `yaml:"range_days" json:"range_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	WorkingHours     timeline.WorkingHours `yaml:"working_hours" json:"working_hours"`
	WorkingHoursOnly bool                  `yaml:"working_hours_only" json:"working_hours_only"`

	// Geometry, in pixels unless noted.
	SlotMinutes      int     `yaml:"slot_minutes" json:"slot_minutes"`
	HourWidth        int     `yaml:"hour_width" json:"hour_width"`
	DaySpacing       int     `yaml:"day_spacing" json:"day_spacing"`
	BorderSpacing    int     `yaml:"border_spacing" json:"border_spacing"`
	RowHeight        int     `yaml:"row_height" json:"row_height"`
	SumRowHeight     int     `yaml:"sum_row_height" json:"sum_row_height"`
	HeaderHeight     int     `yaml:"header_height" json:"header_height"`
	BufferMultiplier float64 `yaml:"buffer_multiplier" json:"buffer_multiplier"`

	// SplitSummary keeps statuses apart in the summary row instead of
	// collapsing everything to busy.
	SplitSummary bool `yaml:"split_summary" json:"split_summary"`

	// MeetingMinutes is the default duration for suggestions.
	MeetingMinutes int `yaml:"meeting_minutes" json:"meeting_minutes"`

	Attendees []model.Attendee `yaml:"attendees" json:"attendees"`

	// MaxOccurrences caps how many instances one recurring event expands to.
	MaxOccurrences int `yaml:"max_occurrences_per_event" json:"max_occurrences_per_event"`

	LogLevel string `yaml:"log_level" json:"log_level"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath, if set, receives a PNG capture of /timeline after each
	// refresh.
	PreviewPath string `yaml:"preview_path,omitempty" json:"preview_path,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "Europe/Amsterdam",
		RefreshCron:      "*/15 * * * *",
		RangeDays:        14,
		BackfillDays:     0,
		WorkingHours:     timeline.DefaultWorkingHours(),
		WorkingHoursOnly: false,
		SlotMinutes:      60,
		HourWidth:        timeline.DefaultHourWidth,
		DaySpacing:       timeline.DefaultDaySpacing,
		BorderSpacing:    0,
		RowHeight:        timeline.DefaultRowHeight,
		SumRowHeight:     timeline.DefaultSumRowHeight,
		HeaderHeight:     timeline.DefaultHeaderHeight,
		BufferMultiplier: timeline.DefaultBufferMultiplier,
		MeetingMinutes:   60,
		Attendees:        []model.Attendee{},
		MaxOccurrences:   5000,
		LogLevel:         "info",
		CacheDir:         "./var/ics-cache",
		RateLimit:        RateLimitConfig{RPS: 10, Burst: 20},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.RangeDays <= 0 {
		c.RangeDays = d.RangeDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.WorkingHours.StartMinute == 0 && c.WorkingHours.EndMinute == 0 {
		c.WorkingHours.StartMinute = d.WorkingHours.StartMinute
		c.WorkingHours.EndMinute = d.WorkingHours.EndMinute
	}
	// No work days means every day is a work day.
	if len(c.WorkingHours.WorkDays) == 0 {
		c.WorkingHours.WorkDays = []int{0, 1, 2, 3, 4, 5, 6}
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = d.SlotMinutes
	}
	if c.HourWidth <= 0 {
		c.HourWidth = d.HourWidth
	}
	if c.DaySpacing < 0 {
		c.DaySpacing = 0
	}
	if c.BorderSpacing < 0 {
		c.BorderSpacing = 0
	}
	if c.RowHeight <= 0 {
		c.RowHeight = d.RowHeight
	}
	if c.SumRowHeight <= 0 {
		c.SumRowHeight = d.SumRowHeight
	}
	if c.HeaderHeight <= 0 {
		c.HeaderHeight = d.HeaderHeight
	}
	if c.BufferMultiplier < 1 {
		c.BufferMultiplier = d.BufferMultiplier
	}
	if c.MeetingMinutes <= 0 {
		c.MeetingMinutes = d.MeetingMinutes
	}
	if c.Attendees == nil {
		c.Attendees = []model.Attendee{}
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = d.MaxOccurrences
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
}

// Validate reports values Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	if (24*60)%c.SlotMinutes != 0 {
		return fmt.Errorf("config: slot_minutes %d: %w", c.SlotMinutes, timeline.ErrSlotDuration)
	}
	wh := c.WorkingHours
	if wh.StartMinute < 0 || wh.EndMinute > 24*60 || wh.StartMinute >= wh.EndMinute {
		return fmt.Errorf("config: working_hours %d-%d is not a forward window within a day", wh.StartMinute, wh.EndMinute)
	}
	for _, d := range wh.WorkDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("config: work day %d out of range 0-6", d)
		}
	}
	seen := make(map[string]bool, len(c.Attendees))
	for i, a := range c.Attendees {
		if a.ID == "" {
			return fmt.Errorf("config: attendee %d has no id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("config: duplicate attendee id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Period returns the displayed range: BackfillDays before today's local
// midnight through RangeDays after it.
func (c *Config) Period(now time.Time) timeline.DateRange {
	loc := c.Location()
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return timeline.DateRange{
		Start: today.AddDate(0, 0, -c.BackfillDays),
		End:   today.AddDate(0, 0, c.RangeDays),
	}
}

// GridOptions maps the configuration onto timeline.BuildGrid inputs.
func (c *Config) GridOptions(now time.Time) timeline.GridOptions {
	return timeline.GridOptions{
		Range:            c.Period(now),
		SlotDuration:     time.Duration(c.SlotMinutes) * time.Minute,
		WorkingHours:     c.WorkingHours,
		WorkingHoursOnly: c.WorkingHoursOnly,
		HourWidth:        c.HourWidth,
		DaySpacing:       c.DaySpacing,
		BorderSpacing:    c.BorderSpacing,
		Location:         c.Location(),
		Now:              now,
	}
}

// PlaceOptions returns the row metrics for block placement.
func (c *Config) PlaceOptions() timeline.PlaceOptions {
	return timeline.PlaceOptions{RowHeight: c.RowHeight, SumRowHeight: c.SumRowHeight}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fbtimeline-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
