// Package ledstrip drives an RGB LED strip behind a serial-connected
// microcontroller. A Controller owns the serial line and the last color that
// was committed to the strip; Fade layers timed transitions on top of it.
package ledstrip

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/ledstrip/ledwire"
)

// BaudRate is the fixed baud rate of the strip controller's serial line.
const BaudRate = 115200

// AckTimeout bounds the wait for the device's acknowledgment byte. The
// protocol itself specifies no timeout; without one a silent device would
// hang SetColor forever, so the controller gives up after this long.
const AckTimeout = 5 * time.Second

// ErrClosed is returned for commands issued after Close.
var ErrClosed = errors.New("led strip connection is closed")

// ErrAckTimeout is returned when the device does not acknowledge a command
// within AckTimeout.
var ErrAckTimeout = errors.New("timed out waiting for device acknowledgment")

// DeviceError wraps a failure to exchange a command with the device. The
// committed color is never advanced by a failed command, so retrying the same
// SetColor re-sends the frame.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return "device communication failed: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Controller owns the serial connection to the strip and the single source
// of truth for the currently displayed color. All of its methods are safe for
// concurrent use; command frames from concurrent callers never interleave on
// the wire.
type Controller struct {
	logger *slog.Logger

	mu     sync.Mutex
	port   serial.Port
	color  Color
	closed bool
}

// Open connects to the strip controller on the given serial device (usually
// /dev/ttyUSB0 or /dev/ttyACM0) and resets the strip to black so that the
// committed color and the physical strip agree. A nil logger disables debug
// logging.
func Open(device string, logger *slog.Logger) (*Controller, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: BaudRate,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}

	c, err := newController(port, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return c, nil
}

// newController wraps an already-open port. Tests use it to run the
// controller over an in-memory port.
func newController(port serial.Port, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := port.SetReadTimeout(AckTimeout); err != nil {
		return nil, errors.Wrap(err, "failed to set ack read timeout")
	}

	c := &Controller{
		logger: logger,
		port:   port,
	}

	// Reset the strip to black regardless of whatever state the device was
	// left in, so the committed color is known to match the hardware.
	c.mu.Lock()
	err := c.exchange(Black)
	c.mu.Unlock()
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	return c, nil
}

// Color returns the last committed color. It never blocks on the device.
func (c *Controller) Color() Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color
}

// SetColor commands the strip to the given color. Each channel is rounded to
// the nearest integer (ties away from zero) and clamped into [0, 255], so
// callers may pass arbitrary reals. Setting the committed color again is a
// no-op: nothing goes over the wire and the call returns immediately.
//
// SetColor blocks until the device acknowledges the frame or AckTimeout
// elapses. The committed color is updated only after the acknowledgment, so
// a failed command leaves Color unchanged.
func (c *Controller) SetColor(r, g, b float64) error {
	next := Color{ClampChannel(r), ClampChannel(g), ClampChannel(b)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if next == c.color {
		return nil
	}
	if c.closed {
		return &DeviceError{Err: ErrClosed}
	}

	if err := c.exchange(next); err != nil {
		return &DeviceError{Err: err}
	}

	c.color = next
	return nil
}

// exchange runs one reset/write/flush/ack cycle for a single frame. The
// caller holds c.mu, which is what keeps distinct commands' bytes from
// interleaving and their acks from crossing over.
func (c *Controller) exchange(color Color) error {
	if err := c.port.ResetInputBuffer(); err != nil {
		return errors.Wrap(err, "failed to reset input buffer")
	}

	frame := ledwire.Frame(color.RGB())
	c.logger.Debug(
		"writing color frame",
		"frame", string(frame))

	if _, err := c.port.Write(frame); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	if err := c.port.Drain(); err != nil {
		return errors.Wrap(err, "failed to flush frame")
	}

	var ack [1]byte
	n, err := c.port.Read(ack[:])
	if err != nil {
		return errors.Wrap(err, "failed to read acknowledgment")
	}
	if n == 0 {
		// go.bug.st/serial signals a read timeout with a zero-length read.
		return ErrAckTimeout
	}

	return nil
}

// Close releases the serial connection. It takes the same lock as SetColor,
// so it never cuts off a command mid-frame. Closing twice is a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.port.Close(); err != nil {
		return errors.Wrap(err, "failed to close serial port")
	}
	return nil
}
