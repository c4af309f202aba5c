package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/optodyne/go-laser/logger"
)

// serialPollInterval is the per-Read timeout used inside the receive loops.
// The overall read timeout is enforced by the loop deadline; a short poll
// keeps context cancellation responsive.
const serialPollInterval = 50 * time.Millisecond

// SerialClient is a Transport over a local serial port.
type SerialClient struct {
	device string
	cfg    *config
	logger logger.Logger

	mu        sync.Mutex
	port      serial.Port
	connected atomic.Bool
}

var _ Transport = (*SerialClient)(nil)

// NewSerialClient creates a serial transport client for the given device
// path (e.g. /dev/ttyUSB0). The baud rate defaults to DefaultBaudRate and
// can be changed with WithBaudRate.
func NewSerialClient(device string, opts ...Option) (*SerialClient, error) {
	if device == "" {
		return nil, fmt.Errorf("transport: empty serial device path")
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &SerialClient{
		device: device,
		cfg:    cfg,
		logger: cfg.logger.With("transport", "serial", "device", device),
	}, nil
}

// Connect opens the serial port. No-op if already connected.
func (c *SerialClient) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected.Load() {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: c.cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(c.device, mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	if err := port.SetReadTimeout(serialPollInterval); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	c.port = port
	c.connected.Store(true)
	c.logger.Info("port opened", "baud", c.cfg.baudRate)

	return nil
}

// Disconnect closes the port. Safe to call when already disconnected.
func (c *SerialClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected.Swap(false) {
		return nil
	}

	err := c.port.Close()
	c.port = nil
	c.logger.Info("port closed")

	return err
}

// Connected reports whether the port is open.
func (c *SerialClient) Connected() bool {
	return c.connected.Load()
}

// Send writes the full frame and drains the transmit buffer.
func (c *SerialClient) Send(ctx context.Context, frame []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	for written := 0; written < len(frame); {
		n, err := c.port.Write(frame[written:])
		written += n

		if err != nil {
			c.connected.Store(false)
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	return c.port.Drain()
}

// ReceiveUntil reads one byte at a time until the terminator is observed.
// The read timeout applies to the whole reply; the port is polled so that
// ctx cancellation is observed between bytes. The protocol is strict
// request/reply, so single-byte reads never leave reply bytes behind.
func (c *SerialClient) ReceiveUntil(ctx context.Context, terminator byte) ([]byte, error) {
	buf := make([]byte, 0, 64)

	err := c.receive(ctx, func() (bool, error) {
		b, err := c.readByte(ctx)
		if err != nil {
			return false, err
		}

		buf = append(buf, b)

		return b == terminator, nil
	})
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// ReceiveBytes reads exactly n bytes.
func (c *SerialClient) ReceiveBytes(ctx context.Context, n int) ([]byte, error) {
	buf := make([]byte, 0, n)

	err := c.receive(ctx, func() (bool, error) {
		b, err := c.readByte(ctx)
		if err != nil {
			return false, err
		}

		buf = append(buf, b)

		return len(buf) >= n, nil
	})
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// errNoData is an internal marker for an expired poll interval.
var errNoData = errors.New("transport: no data in poll interval")

// readByte reads a single byte, returning errNoData when the poll interval
// expires with nothing received.
func (c *SerialClient) readByte(_ context.Context) (byte, error) {
	chunk := make([]byte, 1)

	n, err := c.port.Read(chunk)
	if err != nil {
		c.connected.Store(false)
		return 0, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	if n == 0 {
		return 0, errNoData
	}

	return chunk[0], nil
}

// receive drives step() until it reports completion, the read timeout
// elapses, or ctx is canceled.
func (c *SerialClient) receive(ctx context.Context, step func() (bool, error)) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.cfg.readTimeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: after %v", ErrTimeout, c.cfg.readTimeout)
		}

		done, err := step()
		switch {
		case errors.Is(err, errNoData):
			continue // poll expired, re-check deadline
		case err != nil:
			return err
		case done:
			return nil
		}
	}
}
