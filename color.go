package ledstrip

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Color is an RGB triple. Each channel is an intensity in [0, 255].
type Color [3]uint8

// Black is the all-off color the strip is reset to on startup.
var Black = Color{0, 0, 0}

// RGB returns the individual channels of the color.
func (c Color) RGB() (r, g, b uint8) {
	return c[0], c[1], c[2]
}

// String formats the color the way flags accept it, "R,G,B".
func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c[0], c[1], c[2])
}

// Set parses a "R,G,B" string into the color. It implements pflag.Value so
// colors can be used directly as flags.
func (c *Color) Set(value string) error {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return fmt.Errorf("color %q must have 3 comma-separated channels", value)
	}
	var parsed Color
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return fmt.Errorf("color %q has an invalid channel: %v", value, err)
		}
		parsed[i] = uint8(v)
	}
	*c = parsed
	return nil
}

// Type implements pflag.Value.
func (c *Color) Type() string { return "color" }

var _ pflag.Value = (*Color)(nil)

// Lerp linearly interpolates between a and b. t is clamped to [0, 1]; t=0
// yields a and t=1 yields b.
func Lerp(a, b Color, t float64) Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return Color{
		ClampChannel(float64(a[0]) + t*(float64(b[0])-float64(a[0]))),
		ClampChannel(float64(a[1]) + t*(float64(b[1])-float64(a[1]))),
		ClampChannel(float64(a[2]) + t*(float64(b[2])-float64(a[2]))),
	}
}

// ClampChannel rounds v to the nearest integer, ties away from zero
// (math.Round), and clamps the result into [0, 255].
func ClampChannel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
