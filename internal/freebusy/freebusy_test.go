package freebusy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbtimeline/internal/timeline"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 2, hour, minute, 0, 0, time.UTC)
}

func iv(owner int, status timeline.Status, fromH, fromM, toH, toM int) timeline.Interval {
	return timeline.Interval{Start: at(fromH, fromM), End: at(toH, toM), Status: status, OwnerRow: owner}
}

func TestSumBlocksSingleUser(t *testing.T) {
	in := []timeline.Interval{
		iv(0, timeline.StatusOutOfOffice, 8, 0, 9, 0),
		iv(0, timeline.StatusFree, 9, 0, 10, 0),
		iv(0, timeline.StatusBusy, 10, 0, 11, 0),
		iv(0, timeline.StatusUnknown, 11, 0, 12, 0),
		iv(0, timeline.StatusBusy, 10, 30, 11, 30),
		iv(0, timeline.StatusTentative, 13, 0, 14, 0),
	}

	out := SumBlocks(in, 1, true)
	require.Len(t, out, 4)
	assert.Equal(t, timeline.StatusTentative, out[0].Status)
	assert.Equal(t, timeline.StatusBusy, out[1].Status)
	assert.Equal(t, timeline.StatusBusy, out[2].Status)
	assert.Equal(t, at(10, 30), out[2].Start, "no merging for a single attendee")
	assert.Equal(t, timeline.StatusOutOfOffice, out[3].Status)
	for _, b := range out {
		assert.Equal(t, -1, b.OwnerRow)
	}
}

func TestSumBlocksMergesPerStatus(t *testing.T) {
	in := []timeline.Interval{
		iv(1, timeline.StatusBusy, 10, 30, 12, 0),
		iv(0, timeline.StatusBusy, 10, 0, 11, 0),
		iv(2, timeline.StatusBusy, 12, 0, 13, 0), // touches
		iv(0, timeline.StatusTentative, 10, 15, 10, 45),
		iv(1, timeline.StatusBusy, 15, 0, 16, 0),
		iv(2, timeline.StatusOutOfOffice, 9, 0, 17, 0),
		iv(2, timeline.StatusFree, 7, 0, 8, 0),
	}

	out := SumBlocks(in, 3, true)
	assert.Equal(t, []timeline.Interval{
		{Start: at(10, 15), End: at(10, 45), Status: timeline.StatusTentative, OwnerRow: -1},
		{Start: at(10, 0), End: at(13, 0), Status: timeline.StatusBusy, OwnerRow: -1},
		{Start: at(15, 0), End: at(16, 0), Status: timeline.StatusBusy, OwnerRow: -1},
		{Start: at(9, 0), End: at(17, 0), Status: timeline.StatusOutOfOffice, OwnerRow: -1},
	}, out)
}

func TestSumBlocksCollapse(t *testing.T) {
	in := []timeline.Interval{
		iv(0, timeline.StatusTentative, 9, 0, 10, 0),
		iv(1, timeline.StatusOutOfOffice, 9, 30, 11, 0),
		iv(1, timeline.StatusBusy, 14, 0, 15, 0),
	}

	out := SumBlocks(in, 2, false)
	assert.Equal(t, []timeline.Interval{
		{Start: at(9, 0), End: at(11, 0), Status: timeline.StatusBusy, OwnerRow: -1},
		{Start: at(14, 0), End: at(15, 0), Status: timeline.StatusBusy, OwnerRow: -1},
	}, out)
	assert.Equal(t, out, BusyBlocks(in))
}

func TestSumBlocksEmpty(t *testing.T) {
	assert.Empty(t, SumBlocks(nil, 3, true))
	assert.Empty(t, SumBlocks([]timeline.Interval{iv(0, timeline.StatusFree, 9, 0, 10, 0)}, 1, true))
}

func TestSuggestionWindow(t *testing.T) {
	day := at(15, 40)

	w := SuggestionWindow(day, timeline.DefaultWorkingHours(), true)
	assert.Equal(t, at(9, 0), w.Start)
	assert.Equal(t, at(17, 0), w.End)

	w = SuggestionWindow(day, timeline.DefaultWorkingHours(), false)
	assert.Equal(t, at(0, 0), w.Start)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), w.End)
}

func TestSuggestions(t *testing.T) {
	window := timeline.DateRange{Start: at(9, 0), End: at(13, 0)}
	busy := []timeline.Interval{
		iv(-1, timeline.StatusBusy, 8, 0, 9, 30),
		iv(-1, timeline.StatusBusy, 10, 45, 11, 30),
		iv(-1, timeline.StatusBusy, 12, 30, 14, 0),
	}

	got := Suggestions(busy, window, time.Hour, 0)
	assert.Equal(t, []timeline.DateRange{
		{Start: at(9, 30), End: at(10, 30)},
		{Start: at(11, 30), End: at(12, 30)},
	}, got)

	got = Suggestions(busy, window, 30*time.Minute, 0)
	assert.Equal(t, []timeline.DateRange{
		{Start: at(9, 30), End: at(10, 0)},
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(11, 30), End: at(12, 0)},
		{Start: at(12, 0), End: at(12, 30)},
	}, got)

	got = Suggestions(busy, window, 15*time.Minute, 0)
	assert.Len(t, got, 5+4)
}

func TestSuggestionsNoBusy(t *testing.T) {
	window := timeline.DateRange{Start: at(9, 0), End: at(11, 0)}
	got := Suggestions(nil, window, time.Hour, 0)
	assert.Equal(t, []timeline.DateRange{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(9, 30), End: at(10, 30)},
		{Start: at(10, 0), End: at(11, 0)},
	}, got)

	assert.Nil(t, Suggestions(nil, window, 0, 0))
	assert.Nil(t, Suggestions(nil, timeline.DateRange{Start: at(9, 0), End: at(9, 0)}, time.Hour, 0))
}

func TestSuggestionsBusyAllDay(t *testing.T) {
	window := timeline.DateRange{Start: at(9, 0), End: at(17, 0)}
	busy := []timeline.Interval{iv(-1, timeline.StatusBusy, 0, 0, 23, 0)}
	assert.Empty(t, Suggestions(busy, window, 30*time.Minute, 0))
}

func TestIsBusy(t *testing.T) {
	in := []timeline.Interval{
		iv(0, timeline.StatusFree, 9, 0, 12, 0),
		iv(0, timeline.StatusBusy, 10, 0, 11, 0),
		iv(1, timeline.StatusUnknown, 9, 0, 17, 0),
		iv(1, timeline.StatusTentative, 14, 0, 15, 0),
	}

	tests := []struct {
		name     string
		owner    int
		from, to time.Time
		expected bool
	}{
		{"overlaps busy", 0, at(10, 30), at(11, 30), true},
		{"free around busy", 0, at(9, 0), at(10, 0), false},
		{"ends when busy starts", 0, at(9, 30), at(10, 0), false},
		{"starts when busy ends", 0, at(11, 0), at(12, 0), false},
		{"unknown does not count", 1, at(9, 0), at(10, 0), false},
		{"tentative counts", 1, at(14, 30), at(16, 0), true},
		{"other owner", 2, at(10, 0), at(11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBusy(in, tt.owner, tt.from, tt.to))
		})
	}

	assert.True(t, AnyBusy(in, []int{1, 0}, at(10, 0), at(10, 30)))
	assert.False(t, AnyBusy(in, []int{0, 1}, at(12, 0), at(13, 0)))
	assert.False(t, AnyBusy(in, nil, at(10, 0), at(10, 30)))
}

func TestSnapSelection(t *testing.T) {
	assert.Equal(t, at(10, 0), SnapSelection(at(10, 14), 0))
	assert.Equal(t, at(10, 30), SnapSelection(at(10, 15), 0))
	assert.Equal(t, at(11, 0), SnapSelection(at(10, 50), 0))
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), SnapSelection(at(23, 50), 0))
	assert.Equal(t, at(10, 15), SnapSelection(at(10, 12), 15*time.Minute))
}

func TestSelect(t *testing.T) {
	r, ok := Select(at(10, 5), at(11, 40), 0)
	require.True(t, ok)
	assert.Equal(t, timeline.DateRange{Start: at(10, 0), End: at(11, 30)}, r)

	r, ok = Select(at(14, 0), at(12, 20), 0)
	require.True(t, ok)
	assert.Equal(t, timeline.DateRange{Start: at(12, 30), End: at(14, 0)}, r)

	_, ok = Select(at(10, 0), at(10, 10), 0)
	assert.False(t, ok)

	assert.Equal(t, timeline.DateRange{Start: at(9, 30), End: at(10, 0)}, Press(at(9, 40), 0))
}
