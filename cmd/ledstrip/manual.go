package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"libdb.so/ledstrip"
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Control the LED strip from stdin",
	Long: `Control the LED strip from stdin.

Each input line is a command of the form

	R G B [duration]

which sets the strip to that color, fading over the duration if one is given
(e.g. "255 0 0 2s"). EOF exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(runManual)
	},
}

func runManual(ctx context.Context, leds *ledstrip.Controller) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := applyManualLine(ctx, leds, line); err != nil {
				// Typos should not kill the session.
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}

func applyManualLine(ctx context.Context, leds *ledstrip.Controller, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) != 3 && len(fields) != 4 {
		return fmt.Errorf("expected %q, got %q", "R G B [duration]", line)
	}

	var rgb [3]float64
	for i, field := range fields[:3] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return fmt.Errorf("invalid channel %q: %v", field, err)
		}
		rgb[i] = v
	}

	if len(fields) == 3 {
		return leds.SetColor(rgb[0], rgb[1], rgb[2])
	}

	duration, err := time.ParseDuration(fields[3])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", fields[3], err)
	}
	target := ledstrip.Color{
		ledstrip.ClampChannel(rgb[0]),
		ledstrip.ClampChannel(rgb[1]),
		ledstrip.ClampChannel(rgb[2]),
	}
	return leds.Fade(ctx, target, duration, ledstrip.DefaultFadeStep)
}
