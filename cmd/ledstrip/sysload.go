package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"libdb.so/ledstrip"
	"libdb.so/ledstrip/internal/sysmon"
)

var (
	flagNoLoadColor    = ledstrip.Color{0, 0, 255}
	flagFullLoadColor  = ledstrip.Color{255, 0, 0}
	flagMetrics        = sysmon.All
	flagUpdateInterval = 10 * time.Second
)

var sysloadCmd = &cobra.Command{
	Use:   "sysload",
	Short: "Color the strip based on system load",
	Long: `Color the strip based on system load.

The busiest of the selected metrics determines where the color lands between
the no-load and the full-load color. The strip fades to each new value over
one update interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(runSysload)
	},
}

func init() {
	sysloadCmd.Flags().Var(&flagNoLoadColor, "no-load-color",
		`color of the strip when the system is idle, as "R,G,B"`)
	sysloadCmd.Flags().Var(&flagFullLoadColor, "full-load-color",
		`color of the strip when the system is under full load, as "R,G,B"`)
	sysloadCmd.Flags().StringSliceVarP(&flagMetrics, "metrics", "m", flagMetrics,
		"metrics to monitor; the busiest one determines the color")
	sysloadCmd.Flags().DurationVarP(&flagUpdateInterval, "update-interval", "u", flagUpdateInterval,
		"how long to wait between load checks")
}

func runSysload(ctx context.Context, leds *ledstrip.Controller) error {
	mon, err := sysmon.New(flagMetrics, slog.Default())
	if err != nil {
		return err
	}

	for {
		usage, err := mon.MaxUsage(ctx)
		if err != nil {
			return err
		}

		target := ledstrip.Lerp(flagNoLoadColor, flagFullLoadColor, usage/100)
		if err := leds.Fade(ctx, target, flagUpdateInterval, ledstrip.DefaultFadeStep); err != nil {
			return err
		}
	}
}
