package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbtimeline/internal/model"
	"fbtimeline/internal/timeline"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 14, cfg.RangeDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: UTC
working_hours_only: true
working_hours:
  start_minute: 480
  end_minute: 1020
attendees:
  - id: alice
    name: Alice
    url: https://cal.example.com/alice.ics
  - id: bob
    url: ./bob.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.WorkingHoursOnly)
	assert.Equal(t, 480, cfg.WorkingHours.StartMinute)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, cfg.WorkingHours.WorkDays, "no work days means all days")
	require.Len(t, cfg.Attendees, 2)
	assert.Equal(t, "Alice", cfg.Attendees[0].Label())
	assert.Equal(t, "bob", cfg.Attendees[1].Label())
	assert.Equal(t, "./bob.ics", cfg.Attendees[1].URL)
	assert.Equal(t, 60, cfg.SlotMinutes)
	assert.Equal(t, timeline.DefaultBufferMultiplier, cfg.BufferMultiplier)
	assert.Equal(t, 5000, cfg.MaxOccurrences)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"bad cron", func(c *Config) { c.RefreshCron = "every minute" }, true},
		{"slot does not divide day", func(c *Config) { c.SlotMinutes = 45 }, true},
		{"inverted working hours", func(c *Config) { c.WorkingHours.StartMinute = 18 * 60 }, true},
		{"work day out of range", func(c *Config) { c.WorkingHours.WorkDays = []int{7} }, true},
		{"attendee without id", func(c *Config) { c.Attendees[0].ID = "" }, true},
		{"duplicate attendee", func(c *Config) { c.Attendees = append(c.Attendees, c.Attendees[0]) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Normalize()
			cfg.Attendees = []model.Attendee{{ID: "alice", URL: "./alice.ics"}}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSlotWrapsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlotMinutes = 7
	assert.ErrorIs(t, cfg.Validate(), timeline.ErrSlotDuration)
}

func TestPeriodAndGridOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.RangeDays = 7
	cfg.BackfillDays = 2
	now := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	p := cfg.Period(now)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), p.End)

	opts := cfg.GridOptions(now)
	assert.Equal(t, p, opts.Range)
	assert.Equal(t, time.Hour, opts.SlotDuration)
	assert.Equal(t, now, opts.Now)

	g, err := timeline.BuildGrid(opts)
	require.NoError(t, err)
	assert.Equal(t, 9, g.NumDays())
}

func TestSaveRejectsEmpty(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := Load("")
	assert.Error(t, err)
}
