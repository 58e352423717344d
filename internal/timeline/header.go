package timeline

// Default vertical metrics.
const (
	DefaultHeaderHeight      = 64
	DefaultHeaderHoursHeight = 24
	DefaultHeaderSumHeight   = 10
	DefaultRowHeight         = 30
	DefaultSumRowHeight      = 12
)

// HeaderLayout holds the vertical split of the timeline header: a day label
// row, an hour label row and the aggregated attendee row.
type HeaderLayout struct {
	Height        int `json:"height"`
	DayRowHeight  int `json:"day_row_height"`
	HourRowHeight int `json:"hour_row_height"`
	SumRowHeight  int `json:"sum_row_height"`
	// SumTop is the top offset of the summary block container.
	SumTop int `json:"sum_top"`
}

// NewHeaderLayout derives the day row height from the total header height.
// The summary row is a separate table with a border above and below.
func NewHeaderLayout(height, hourRow, sumRow, border int) HeaderLayout {
	if height <= 0 {
		height = DefaultHeaderHeight
	}
	if hourRow <= 0 {
		hourRow = DefaultHeaderHoursHeight
	}
	if sumRow <= 0 {
		sumRow = DefaultHeaderSumHeight
	}
	day := height - (sumRow + 2*border) - hourRow
	if day < 0 {
		day = 0
	}
	return HeaderLayout{
		Height:        height,
		DayRowHeight:  day,
		HourRowHeight: hourRow,
		SumRowHeight:  sumRow,
		SumTop:        height - (sumRow + border),
	}
}

// BodyHeight is the height of the block area: one row per attendee plus
// extra padding, never less than the visible client height.
func BodyHeight(rows, rowHeight, extra, clientHeight int) int {
	h := rows*rowHeight + extra
	if clientHeight > h {
		return clientHeight
	}
	return h
}
