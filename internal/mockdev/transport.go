package mockdev

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/optodyne/go-laser/transport"
)

// Transport is an in-memory transport.Transport backed by a Device. Send
// hands the frame to the device and buffers its reply for the subsequent
// Receive calls; a dropped reply surfaces as ErrTimeout without waiting.
type Transport struct {
	dev *Device

	mu      sync.Mutex
	pending bytes.Buffer

	connected atomic.Bool

	// Sends counts frames delivered to the device, for zero-I/O
	// assertions in tests.
	Sends atomic.Int64
}

var _ transport.Transport = (*Transport)(nil)

// NewTransport creates a transport backed by dev.
func NewTransport(dev *Device) *Transport {
	return &Transport{dev: dev}
}

// Connect marks the transport connected. Never fails.
func (t *Transport) Connect(_ context.Context) error {
	t.connected.Store(true)
	return nil
}

// Disconnect marks the transport disconnected and clears any buffered
// reply bytes.
func (t *Transport) Disconnect() error {
	t.connected.Store(false)

	t.mu.Lock()
	t.pending.Reset()
	t.mu.Unlock()

	return nil
}

// Connected reports the simulated link state.
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Send delivers the frame to the device and buffers the reply.
func (t *Transport) Send(_ context.Context, frame []byte) error {
	if !t.connected.Load() {
		return transport.ErrNotConnected
	}

	t.Sends.Add(1)

	reply, ok := t.dev.HandleRequest(frame)
	if !ok {
		return nil // reply dropped; the receive will time out
	}

	t.mu.Lock()
	t.pending.Write(reply)
	t.mu.Unlock()

	return nil
}

// ReceiveUntil pops buffered reply bytes through the terminator. An empty
// buffer reports ErrTimeout immediately rather than waiting out a real
// timer.
func (t *Transport) ReceiveUntil(_ context.Context, terminator byte) ([]byte, error) {
	if !t.connected.Load() {
		return nil, transport.ErrNotConnected
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data := t.pending.Bytes()

	idx := bytes.IndexByte(data, terminator)
	if idx < 0 {
		t.pending.Reset()
		return nil, fmt.Errorf("%w: no reply", transport.ErrTimeout)
	}

	out := make([]byte, idx+1)
	_, _ = t.pending.Read(out)

	return out, nil
}

// ReceiveBytes pops exactly n buffered bytes.
func (t *Transport) ReceiveBytes(_ context.Context, n int) ([]byte, error) {
	if !t.connected.Load() {
		return nil, transport.ErrNotConnected
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if buffered := t.pending.Len(); buffered < n {
		t.pending.Reset()
		return nil, fmt.Errorf("%w: %d bytes buffered, want %d", transport.ErrTimeout, buffered, n)
	}

	out := make([]byte, n)
	_, _ = t.pending.Read(out)

	return out, nil
}
