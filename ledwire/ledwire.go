// Package ledwire implements the ASCII command protocol spoken by the LED
// strip controller over its serial line.
//
// A command frame has the form "R,G,B." where R, G and B are decimal
// integers in [0, 255] with no leading zeros, separated by commas and
// terminated by a single period. Frames carry no line terminator. After
// applying a frame the device answers with at least one byte; the content of
// that byte is meaningless and its arrival alone acts as the acknowledgment.
package ledwire

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
)

// Terminator ends every command frame on the wire.
const Terminator = '.'

// MaxFrameLen is the longest possible frame, "255,255,255." inclusive of the
// terminator.
const MaxFrameLen = 12

// AppendFrame appends the command frame for the given channels to dst and
// returns the extended slice.
func AppendFrame(dst []byte, r, g, b uint8) []byte {
	dst = strconv.AppendUint(dst, uint64(r), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(g), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(b), 10)
	return append(dst, Terminator)
}

// Frame returns the command frame for the given channels.
func Frame(r, g, b uint8) []byte {
	return AppendFrame(make([]byte, 0, MaxFrameLen), r, g, b)
}

// ParseFrame parses a single frame. The input must be exactly one frame
// including its terminator.
func ParseFrame(frame []byte) (r, g, b uint8, err error) {
	if len(frame) == 0 || frame[len(frame)-1] != Terminator {
		return 0, 0, 0, fmt.Errorf("frame %q is not terminated", frame)
	}

	parts := bytes.Split(frame[:len(frame)-1], []byte(","))
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("frame %q has %d channels, want 3", frame, len(parts))
	}

	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.ParseUint(string(part), 10, 8)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("frame %q has bad channel value: %w", frame, err)
		}
		if len(part) > 1 && part[0] == '0' {
			return 0, 0, 0, fmt.Errorf("frame %q has a leading zero", frame)
		}
		channels[i] = uint8(v)
	}

	return channels[0], channels[1], channels[2], nil
}

// ScanFrames is a bufio.SplitFunc that splits a byte stream into whole
// frames, terminator included. It is what the device end of the line uses to
// delimit commands, and what tests use to check that concurrent writers never
// interleave their frames.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, Terminator); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF && len(data) > 0 {
		return 0, nil, fmt.Errorf("unterminated frame %q at end of stream", data)
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = ScanFrames
