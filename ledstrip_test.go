package ledstrip

import (
	"bufio"
	"bytes"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"libdb.so/ledstrip/ledwire"
)

// fakePort is an in-memory serial.Port speaking the device's side of the
// protocol: it records every byte written and queues one acknowledgment byte
// per write.
type fakePort struct {
	mu       sync.Mutex
	wire     bytes.Buffer
	acks     chan byte
	writeErr error
	dropAcks bool
	closed   bool
	resets   int
}

func newFakePort() *fakePort {
	return &fakePort{acks: make(chan byte, 64)}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("fake port is closed")
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.wire.Write(b)
	if !p.dropAcks {
		p.acks <- 'k'
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, errors.New("fake port is closed")
	}

	// Writes queue their ack before the controller reads, so an empty queue
	// means the device stayed silent. Mimic the driver's timeout result.
	select {
	case v := <-p.acks:
		b[0] = v
		return 1, nil
	default:
		return 0, nil
	}
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	return nil
}

func (p *fakePort) ResetOutputBuffer() error                    { return nil }
func (p *fakePort) Drain() error                                { return nil }
func (p *fakePort) SetMode(mode *serial.Mode) error             { return nil }
func (p *fakePort) SetDTR(dtr bool) error                       { return nil }
func (p *fakePort) SetRTS(rts bool) error                       { return nil }
func (p *fakePort) SetReadTimeout(t time.Duration) error        { return nil }
func (p *fakePort) Break(d time.Duration) error                 { return nil }
func (p *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

// frames decodes everything written to the port so far into whole frames.
func (p *fakePort) frames(t *testing.T) []string {
	t.Helper()

	p.mu.Lock()
	wire := append([]byte(nil), p.wire.Bytes()...)
	p.mu.Unlock()

	var frames []string
	scanner := bufio.NewScanner(bytes.NewReader(wire))
	scanner.Split(ledwire.ScanFrames)
	for scanner.Scan() {
		frames = append(frames, scanner.Text())
	}
	require.NoError(t, scanner.Err(), "wire contains a malformed frame")
	return frames
}

func newTestController(t *testing.T) (*Controller, *fakePort) {
	t.Helper()

	port := newFakePort()
	c, err := newController(port, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, port
}

func TestControllerResetsToBlack(t *testing.T) {
	c, port := newTestController(t)

	require.Equal(t, []string{"0,0,0."}, port.frames(t))
	require.Equal(t, Black, c.Color())
}

func TestSetColorRoundsAndClamps(t *testing.T) {
	c, port := newTestController(t)

	require.NoError(t, c.SetColor(-10, 300, 127.5))
	require.Equal(t, Color{0, 255, 128}, c.Color())
	require.Equal(t, []string{"0,0,0.", "0,255,128."}, port.frames(t))
}

func TestSetColorSuppressesRedundantWrites(t *testing.T) {
	c, port := newTestController(t)

	require.NoError(t, c.SetColor(10, 20, 30))
	require.NoError(t, c.SetColor(10, 20, 30))
	// Inputs that clamp to the committed color are no-ops too.
	require.NoError(t, c.SetColor(10.2, 19.9, 30.4))

	require.Equal(t, []string{"0,0,0.", "10,20,30."}, port.frames(t))
}

func TestSetColorWriteErrorKeepsColor(t *testing.T) {
	c, port := newTestController(t)
	require.NoError(t, c.SetColor(1, 2, 3))

	port.mu.Lock()
	port.writeErr = errors.New("yanked cable")
	port.mu.Unlock()

	err := c.SetColor(200, 200, 200)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, Color{1, 2, 3}, c.Color(), "failed command must not advance the committed color")

	// Clearing the fault makes the same command go through.
	port.mu.Lock()
	port.writeErr = nil
	port.mu.Unlock()

	require.NoError(t, c.SetColor(200, 200, 200))
	require.Equal(t, Color{200, 200, 200}, c.Color())
}

func TestSetColorAckTimeout(t *testing.T) {
	c, port := newTestController(t)

	port.mu.Lock()
	port.dropAcks = true
	port.mu.Unlock()

	err := c.SetColor(5, 5, 5)
	require.ErrorIs(t, err, ErrAckTimeout)
	require.Equal(t, Black, c.Color())
}

func TestSetColorAfterClose(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.Close())

	err := c.SetColor(1, 2, 3)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseTwice(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestSetColorResetsInputBuffer(t *testing.T) {
	c, port := newTestController(t)
	require.NoError(t, c.SetColor(9, 9, 9))

	port.mu.Lock()
	resets := port.resets
	port.mu.Unlock()
	require.Equal(t, 2, resets, "one reset per delivered frame")
}

func TestConcurrentSetColorKeepsFramesWhole(t *testing.T) {
	c, port := newTestController(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perWorker; i++ {
				err := c.SetColor(
					float64(rng.Intn(256)),
					float64(rng.Intn(256)),
					float64(rng.Intn(256)),
				)
				if err != nil {
					t.Errorf("SetColor: %v", err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	// Every frame on the wire must parse on its own; interleaved writers
	// would corrupt at least one.
	for _, frame := range port.frames(t) {
		_, _, _, err := ledwire.ParseFrame([]byte(frame))
		require.NoError(t, err)
	}
}
