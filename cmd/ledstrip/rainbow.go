package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"libdb.so/ledstrip"
)

var (
	flagFadeTime = 30 * time.Second
	flagFadeStep = ledstrip.DefaultFadeStep
)

// rainbowCorners are visited in order, endlessly. Channels idle at 1 rather
// than 0 so every LED stays faintly lit between corners.
var rainbowCorners = []ledstrip.Color{
	{255, 1, 1},
	{1, 255, 1},
	{1, 1, 255},
}

var rainbowCmd = &cobra.Command{
	Use:   "rainbow",
	Short: "Show a repeating rainbow sequence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(runRainbow)
	},
}

func init() {
	rainbowCmd.Flags().DurationVar(&flagFadeTime, "fade-time", flagFadeTime,
		"how long the fade to each rainbow corner takes")
	rainbowCmd.Flags().DurationVar(&flagFadeStep, "step", flagFadeStep,
		"cadence of the individual color steps")
}

func runRainbow(ctx context.Context, leds *ledstrip.Controller) error {
	if err := leds.SetColor(255, 1, 1); err != nil {
		return err
	}

	for i := 1; ; i++ {
		target := rainbowCorners[i%len(rainbowCorners)]
		if err := leds.Fade(ctx, target, flagFadeTime, flagFadeStep); err != nil {
			return err
		}
	}
}
