package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fbtimeline/internal/config"
	appLog "fbtimeline/internal/log"
)

const version = "0.1.0-dev"

// rootFlags holds flags shared by every subcommand.
type rootFlags struct {
	configPath string
	noColor    bool
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLog.Error("fbtimeline failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "fbtimeline",
		Short:         "Free/busy timeline for a group of calendar attendees.",
		Long:          `fbtimeline loads attendee ICS feeds and lays their free/busy blocks out on a day/hour timeline, served over HTTP or rendered to SVG, PDF or a text table.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "./config.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(newServeCmd(flags), newRenderCmd(flags), newDumpCmd(flags))
	return root
}

// loadConfig reads the config file and applies its log level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"config_path", flags.configPath,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"range_days", conf.RangeDays,
		"working_hours_only", conf.WorkingHoursOnly,
		"attendees", len(conf.Attendees),
	)
	return conf, nil
}
