// ledstrip controls an RGB LED strip behind a serial-connected
// microcontroller.
//
// Usage:
//
//	ledstrip -d /dev/ttyACM0 manual           - Set colors from stdin
//	ledstrip -d /dev/ttyACM0 rainbow          - Cycle through the rainbow
//	ledstrip -d /dev/ttyACM0 sysload          - Color the strip by system load
//
// All modes run until interrupted and leave the strip at its last color.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledstrip"
)

var (
	flagDevice  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "ledstrip",
	Short:         "Control an RGB LED strip over a serial port",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDevice, "device", "d", "",
		`serial port the strip controller is connected to, e.g. "/dev/ttyACM0"`)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"verbose output")
	rootCmd.MarkPersistentFlagRequired("device")

	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(rainbowCmd)
	rootCmd.AddCommand(sysloadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Verbose mode turns on debug output,
// which includes every frame written to the wire.
func newLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if flagVerbose {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// runMode opens the strip and drives the given mode loop until it returns or
// the process is interrupted. The serial connection is closed on every exit
// path; closing it is also what unblocks a loop stuck waiting on a device
// acknowledgment. An interrupt is a clean exit, not an error.
func runMode(loop func(ctx context.Context, leds *ledstrip.Controller) error) error {
	logger := newLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	leds, err := ledstrip.Open(flagDevice, logger)
	if err != nil {
		return err
	}

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		logger.Debug("closing serial port")
		if err := leds.Close(); err != nil {
			return err
		}
		return ctx.Err()
	})
	errg.Go(func() error {
		if err := loop(ctx, leds); err != nil {
			// The loop's device errors after an interrupt are just the close
			// racing an in-flight command.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		return nil
	})

	if err := errg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
