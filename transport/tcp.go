package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/optodyne/go-laser/logger"
)

// TCPClient is a Transport over a TCP stream, typically a serial-to-ethernet
// bridge in front of the instrument.
type TCPClient struct {
	addr   string
	cfg    *config
	logger logger.Logger

	// mu guards conn/reader against concurrent Connect/Disconnect. The
	// receive path is serialized by the Commander, not by this mutex.
	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected atomic.Bool
}

var _ Transport = (*TCPClient)(nil)

// NewTCPClient creates a TCP transport client for host:port.
func NewTCPClient(host string, port int, opts ...Option) (*TCPClient, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("transport: port %d out of range [0, 65535]", port)
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	return &TCPClient{
		addr:   addr,
		cfg:    cfg,
		logger: cfg.logger.With("transport", "tcp", "addr", addr),
	}, nil
}

// Connect dials the endpoint. No-op if already connected.
func (c *TCPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected.Load() {
		return nil
	}

	dialer := net.Dialer{Timeout: c.cfg.connectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected.Store(true)
	c.logger.Info("connected")

	return nil
}

// Disconnect closes the stream. Safe to call when already disconnected.
func (c *TCPClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected.Swap(false) {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.logger.Info("disconnected")

	return err
}

// Connected reports whether the stream is open.
func (c *TCPClient) Connected() bool {
	return c.connected.Load()
}

// Send writes the full frame, honoring the send timeout.
func (c *TCPClient) Send(ctx context.Context, frame []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.sendTimeout)); err != nil {
		return err
	}

	for written := 0; written < len(frame); {
		n, err := c.conn.Write(frame[written:])
		written += n

		if err != nil {
			return c.mapIOError(err)
		}
	}

	return nil
}

// ReceiveUntil reads until the terminator byte, inclusive. The read timeout
// applies to the whole reply.
func (c *TCPClient) ReceiveUntil(ctx context.Context, terminator byte) ([]byte, error) {
	if !c.connected.Load() {
		return nil, ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.readTimeout)); err != nil {
		return nil, err
	}

	data, err := c.reader.ReadBytes(terminator)
	if err != nil {
		return nil, c.mapIOError(err)
	}

	return data, nil
}

// ReceiveBytes reads exactly n bytes.
func (c *TCPClient) ReceiveBytes(ctx context.Context, n int) ([]byte, error) {
	if !c.connected.Load() {
		return nil, ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.readTimeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, c.mapIOError(err)
	}

	return buf, nil
}

// mapIOError converts raw stream errors into the transport error taxonomy.
// A closed or reset stream flips the connected flag so callers observe
// Connected() == false afterwards.
func (c *TCPClient) mapIOError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	c.connected.Store(false)
	c.logger.Warn("stream error, marking disconnected", "error", err)

	return fmt.Errorf("%w: %w", ErrNotConnected, err)
}
