package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fbtimeline/internal/capture"
	"fbtimeline/internal/config"
	"fbtimeline/internal/ics"
	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/model"
	"fbtimeline/internal/refresh"
	"fbtimeline/internal/render"
	"fbtimeline/internal/store"
	"fbtimeline/internal/timeline"
	"fbtimeline/internal/web"
)

func newProvider(conf *config.Config) *ics.Provider {
	p := ics.NewProvider(ics.NewFetcher(conf.CacheDir, 0), conf.Location())
	p.SetMaxOccurrences(conf.MaxOccurrences)
	return p
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline API and rendered views over HTTP.",
		Long: `Serve the timeline over HTTP and reload attendee feeds on the configured cron schedule.

Endpoints:
  /health, /api/grid, /api/blocks, /api/viewport, /api/suggestions,
  /api/check, /timeline, /timeline.svg, /timeline.pdf, /preview.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				conf.Listen = listen
			}
			return serve(cmd.Context(), conf)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(ctx context.Context, conf *config.Config) error {
	st := store.New(conf, newProvider(conf), store.DefaultTTL)
	srv := web.NewServer(st)

	var shot refresh.CaptureFunc
	if conf.PreviewPath != "" {
		target := captureURL(conf)
		shot = func(ctx context.Context) error {
			return capture.TimelinePNG(ctx, capture.Options{URL: target, OutputPath: conf.PreviewPath})
		}
	}
	sched := refresh.New(st, shot)
	sched.SetLocation(conf.Location())
	if err := sched.Start(ctx, conf.RefreshCron); err != nil {
		return err
	}

	// First load once the listener is up so the capture can reach it.
	go func() {
		time.Sleep(200 * time.Millisecond)
		if err := sched.RunOnce(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()

	return srv.Serve(ctx)
}

// captureURL points headless Chromium at the local /timeline page.
func captureURL(conf *config.Config) string {
	host := conf.Listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	u := url.URL{Scheme: "http", Host: host, Path: "/timeline"}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		u.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
	}
	return u.String()
}

type renderFlags struct {
	format string
	out    string
	only   bool
	split  bool
	scroll int
	width  int
}

func newRenderCmd(flags *rootFlags) *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the timeline once to SVG, PDF or a text table.",
		Long: `Load every attendee feed once and render the timeline.

Examples:
  # Whole period as SVG
  fbtimeline render --format svg --out timeline.svg

  # Working hours only, as PDF
  fbtimeline render --format pdf --only --out timeline.pdf

  # Only the days around a viewport
  fbtimeline render --scroll 2000 --width 1200 --out part.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("only") {
				rf.only = conf.WorkingHoursOnly
			}
			if !cmd.Flags().Changed("split") {
				rf.split = conf.SplitSummary
			}
			return renderOnce(cmd.Context(), conf, rf)
		},
	}
	cmd.Flags().StringVar(&rf.format, "format", "svg", "Output format: svg, pdf or table")
	cmd.Flags().StringVar(&rf.out, "out", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&rf.only, "only", false, "Show working hours only")
	cmd.Flags().BoolVar(&rf.split, "split", false, "Keep statuses apart in the summary row")
	cmd.Flags().IntVar(&rf.scroll, "scroll", 0, "Viewport scroll offset in pixels")
	cmd.Flags().IntVar(&rf.width, "width", 0, "Viewport width in pixels, 0 for the whole timeline")
	return cmd
}

// load builds the grid and loads every attendee for its period.
func load(ctx context.Context, conf *config.Config, only bool) (*timeline.Grid, *model.Snapshot, error) {
	opts := conf.GridOptions(time.Now())
	opts.WorkingHoursOnly = only
	g, err := timeline.BuildGrid(opts)
	if err != nil {
		return nil, nil, err
	}
	if len(conf.Attendees) == 0 {
		return nil, nil, store.ErrNoAttendees
	}
	snap, err := newProvider(conf).Load(ctx, conf.Attendees, g.Range())
	if err != nil {
		return nil, nil, err
	}
	return g, snap, nil
}

func renderOnce(ctx context.Context, conf *config.Config, rf *renderFlags) error {
	g, snap, err := load(ctx, conf, rf.only)
	if err != nil {
		return err
	}
	opts := render.Options{
		Place:    conf.PlaceOptions(),
		Header:   timeline.NewHeaderLayout(conf.HeaderHeight, 0, 0, 1),
		Viewport: timeline.Viewport{ScrollLeft: rf.scroll, Width: rf.width},
		Buffer:   conf.BufferMultiplier,
		Split:    rf.split,
	}
	sc := render.Layout(g, snap, opts)

	return withOutput(rf.out, func(w io.Writer) error {
		switch rf.format {
		case "svg":
			s := render.NewSVGSurface()
			render.Draw(s, sc, opts)
			_, err := s.WriteTo(w)
			return err
		case "pdf":
			s := render.NewPDFSurface()
			render.Draw(s, sc, opts)
			_, err := s.WriteTo(w)
			return err
		case "table":
			return render.WriteTable(w, sc, true)
		default:
			return fmt.Errorf("unknown format %q (want svg, pdf or table)", rf.format)
		}
	})
}

func newDumpCmd(flags *rootFlags) *cobra.Command {
	var only bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the grid and every placed block as a table.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("only") {
				only = conf.WorkingHoursOnly
			}
			g, snap, err := load(cmd.Context(), conf, only)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "period %s - %s, %d days x %d slots, timeline width %dpx\n",
				g.Range().Start.Format(time.DateOnly), g.Range().End.Format(time.DateOnly),
				g.NumDays(), g.NumSlots(), g.TimelineWidth())
			for _, a := range snap.Attendees {
				if err := snap.Errors[a.ID]; err != nil {
					fmt.Fprintf(out, "%s: %v\n", a.Label(), err)
				}
			}
			sc := render.Layout(g, snap, render.Options{Place: conf.PlaceOptions(), Split: conf.SplitSummary})
			return render.WriteTable(out, sc, true)
		},
	}
	cmd.Flags().BoolVar(&only, "only", false, "Show working hours only")
	return cmd
}

// withOutput hands fn stdout for "-" or a freshly created file.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("wrote output", "path", path)
	return nil
}
