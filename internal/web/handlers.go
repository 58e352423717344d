package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fbtimeline/internal/freebusy"
	"fbtimeline/internal/model"
	"fbtimeline/internal/render"
	"fbtimeline/internal/timeline"
)

const defaultViewportWidth = 1200

type gridResponse struct {
	Range            timeline.DateRange    `json:"range"`
	WorkingHoursOnly bool                  `json:"working_hours_only"`
	Days             []timeline.DayEntry   `json:"days"`
	Slots            []timeline.HourSlot   `json:"slots"`
	HourWidth        int                   `json:"hour_width"`
	DayWidth         int                   `json:"day_width"`
	DaySpacing       int                   `json:"day_spacing"`
	TimelineWidth    int                   `json:"timeline_width"`
	Header           timeline.HeaderLayout `json:"header"`
}

type attendeeDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Row   int    `json:"row"`
	Error string `json:"error,omitempty"`
}

type blocksResponse struct {
	Attendees []attendeeDTO         `json:"attendees"`
	Blocks    []timeline.PlacedRect `json:"blocks"`
	Summary   []timeline.PlacedRect `json:"summary"`
	Intervals []timeline.Interval   `json:"intervals"`
	LoadedAt  time.Time             `json:"loaded_at"`
}

type viewportResponse struct {
	Viewport    timeline.Viewport  `json:"viewport"`
	FirstDay    int                `json:"first_day"`
	LastDay     int                `json:"last_day"`
	Materialize []int              `json:"materialize"`
	Viewed      timeline.DateRange `json:"viewed"`
	Focus       timeline.DateRange `json:"focus"`
	// Toggled is the scroll offset that keeps the same area in view after
	// switching working-hours-only.
	Toggled *toggleResponse `json:"toggled,omitempty"`
}

type toggleResponse struct {
	WorkingHoursOnly bool `json:"working_hours_only"`
	ScrollLeft       int  `json:"scroll_left"`
}

type suggestionsResponse struct {
	Window      timeline.DateRange   `json:"window"`
	Duration    int                  `json:"duration_minutes"`
	Attendees   []string             `json:"attendees"`
	Suggestions []timeline.DateRange `json:"suggestions"`
}

type checkResponse struct {
	Range timeline.DateRange `json:"range"`
	Busy  map[string]bool    `json:"busy"`
	Any   bool               `json:"any"`
}

func (s *Server) workingHoursOnly(q url.Values) bool {
	return parseBoolDefault(q.Get("only"), s.cfg.WorkingHoursOnly)
}

func (s *Server) header() timeline.HeaderLayout {
	return timeline.NewHeaderLayout(s.cfg.HeaderHeight, 0, 0, 1)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Grid(s.workingHoursOnly(r.URL.Query()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{
		Range:            g.Range(),
		WorkingHoursOnly: g.WorkingHoursOnly(),
		Days:             g.Days(),
		Slots:            g.Slots(),
		HourWidth:        g.HourWidth(),
		DayWidth:         g.DayWidth(),
		DaySpacing:       g.DaySpacing(),
		TimelineWidth:    g.TimelineWidth(),
		Header:           s.header(),
	})
}

// scene loads the snapshot and lays it out on the requested grid.
func (s *Server) scene(r *http.Request) (*render.Scene, *model.Snapshot, render.Options, error) {
	q := r.URL.Query()
	opts := render.Options{
		Place:    s.cfg.PlaceOptions(),
		Header:   s.header(),
		Buffer:   s.cfg.BufferMultiplier,
		Split:    parseBoolDefault(q.Get("split"), s.cfg.SplitSummary),
		Viewport: timeline.Viewport{ScrollLeft: parseIntDefault(q.Get("scroll"), 0), Width: parseIntDefault(q.Get("width"), 0)},
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		return nil, nil, opts, err
	}
	g, err := s.store.Grid(s.workingHoursOnly(q))
	if err != nil {
		return nil, nil, opts, err
	}
	return render.Layout(g, snap, opts), snap, opts, nil
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	sc, snap, _, err := s.scene(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}

	resp := blocksResponse{
		Attendees: attendeeDTOs(snap),
		Blocks:    nonNil(sc.Blocks),
		Summary:   nonNil(sc.Summary),
		Intervals: snap.Intervals,
		LoadedAt:  snap.LoadedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func attendeeDTOs(snap *model.Snapshot) []attendeeDTO {
	out := make([]attendeeDTO, 0, len(snap.Attendees))
	for row, a := range snap.Attendees {
		dto := attendeeDTO{ID: a.ID, Name: a.Label(), Row: row}
		if err := snap.Errors[a.ID]; err != nil {
			dto.Error = err.Error()
		}
		out = append(out, dto)
	}
	return out
}

func nonNil(r []timeline.PlacedRect) []timeline.PlacedRect {
	if r == nil {
		return []timeline.PlacedRect{}
	}
	return r
}

// handleViewport answers which days to materialize for a scroll position.
//
// GET /api/viewport?scroll=0&width=1200&only=false&toggle=true
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	only := s.workingHoursOnly(q)
	g, err := s.store.Grid(only)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vp := timeline.Viewport{
		ScrollLeft: parseIntDefault(q.Get("scroll"), 0),
		Width:      parseIntDefault(q.Get("width"), defaultViewportWidth),
	}
	if vp.Width <= 0 {
		vp.Width = defaultViewportWidth
	}
	resp := viewportResponse{Viewport: vp, Materialize: []int{}}
	first, last, ok := timeline.DayRange(g, vp, s.cfg.BufferMultiplier)
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	m := g.Mapper()
	resp.FirstDay, resp.LastDay = first, last
	resp.Materialize = timeline.ComputeDelta(g, nil, vp, s.cfg.BufferMultiplier).Materialize
	resp.Viewed = m.ViewedRange(vp)
	resp.Focus = m.FocusRange(vp)

	if parseBoolDefault(q.Get("toggle"), false) {
		selection, err := parseRange(q.Get("sel_start"), q.Get("sel_end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snapshot := m.CaptureSnapshot(vp, selection)
		other, err := s.store.Grid(!only)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Toggled = &toggleResponse{WorkingHoursOnly: !only}
		if !other.Empty() {
			resp.Toggled.ScrollLeft = other.Mapper().RestoreSnapshot(snapshot, vp.Width, selection)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSuggestions lists free meeting slots on one day.
//
// GET /api/suggestions?date=2024-01-02&duration=60&attendees=alice,bob
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.cfg.Location()

	day := s.store.Now().In(loc)
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = d
	}
	minutes := parseIntDefault(q.Get("duration"), s.cfg.MeetingMinutes)
	if minutes <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be positive")
		return
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	ids, rows, err := selectAttendees(snap, q.Get("attendees"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	busy := freebusy.BusyBlocks(ownedBy(snap.Intervals, rows))
	window := freebusy.SuggestionWindow(day, s.cfg.WorkingHours, s.workingHoursOnly(q))
	dur := time.Duration(minutes) * time.Minute

	suggestions := freebusy.Suggestions(busy, window, dur, 0)
	if suggestions == nil {
		suggestions = []timeline.DateRange{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{
		Window:      window,
		Duration:    minutes,
		Attendees:   ids,
		Suggestions: suggestions,
	})
}

// handleCheck snaps a selection like the timeline selector and reports who
// is busy in it.
//
// GET /api/check?start=2024-01-02T09:10:00Z&end=2024-01-02T10:05:00Z
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.cfg.Location()

	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start, want RFC3339")
		return
	}
	start = start.In(loc)

	var rng timeline.DateRange
	if v := q.Get("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end, want RFC3339")
			return
		}
		var ok bool
		if rng, ok = freebusy.Select(start, end.In(loc), freebusy.DefaultSnap); !ok {
			rng = freebusy.Press(start, freebusy.DefaultSnap)
		}
	} else {
		rng = freebusy.Press(start, freebusy.DefaultSnap)
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	ids, rows, err := selectAttendees(snap, q.Get("attendees"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := checkResponse{Range: rng, Busy: make(map[string]bool, len(ids))}
	for i, id := range ids {
		resp.Busy[id] = freebusy.IsBusy(snap.Intervals, rows[i], rng.Start, rng.End)
	}
	resp.Any = freebusy.AnyBusy(snap.Intervals, rows, rng.Start, rng.End)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	sc, _, opts, err := s.scene(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	surface := render.NewSVGSurface()
	render.Draw(surface, sc, opts)

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = surface.WriteTo(w)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	sc, _, opts, err := s.scene(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	surface := render.NewPDFSurface()
	render.Draw(surface, sc, opts)

	var buf bytes.Buffer
	if _, err := surface.WriteTo(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="timeline.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

// selectAttendees resolves a comma separated ID list to rows. Empty means
// everyone.
func selectAttendees(snap *model.Snapshot, list string) ([]string, []int, error) {
	if strings.TrimSpace(list) == "" {
		ids := make([]string, len(snap.Attendees))
		for i, a := range snap.Attendees {
			ids[i] = a.ID
		}
		return ids, snap.Owners(), nil
	}

	index := make(map[string]int, len(snap.Attendees))
	for i, a := range snap.Attendees {
		index[a.ID] = i
	}
	var ids []string
	var rows []int
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		row, ok := index[id]
		if !ok {
			return nil, nil, fmt.Errorf("unknown attendee %q", id)
		}
		ids = append(ids, id)
		rows = append(rows, row)
	}
	return ids, rows, nil
}

func ownedBy(intervals []timeline.Interval, rows []int) []timeline.Interval {
	want := make(map[int]bool, len(rows))
	for _, r := range rows {
		want[r] = true
	}
	var out []timeline.Interval
	for _, iv := range intervals {
		if want[iv.OwnerRow] {
			out = append(out, iv)
		}
	}
	return out
}

func parseRange(start, end string) (*timeline.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("invalid sel_start: %w", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, fmt.Errorf("invalid sel_end: %w", err)
	}
	r, err := timeline.NewDateRange(s, e)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
