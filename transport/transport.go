// Package transport provides the physical-link layer of the laser driver:
// byte-level clients for TCP and serial endpoints, and the Commander that
// serializes request/reply exchanges onto one shared link.
//
// The register packages (ascii, compoway) consume the Transport interface
// and never open or close connections themselves; the top-level laser
// component owns the concrete client exclusively.
package transport

import (
	"context"
	"errors"
)

// Sentinel errors for the transport layer.
var (
	// ErrConnectFailed indicates the endpoint was unreachable within the
	// configured connect timeout.
	ErrConnectFailed = errors.New("transport: connect failed")

	// ErrNotConnected indicates an operation was attempted while the link
	// reports not-connected. The caller is expected to reconnect before
	// retrying.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrTimeout indicates no terminator-delimited reply (or requested byte
	// count) arrived within the configured read timeout.
	ErrTimeout = errors.New("transport: reply timeout")

	// ErrBusy indicates the serialization guard could not be acquired
	// within the configured acquisition timeout.
	ErrBusy = errors.New("transport: link busy")
)

// Transport is the byte-level capability consumed by the register layer.
//
// Implementations carry no knowledge of registers or frames; they deliver
// raw bytes and report link liveness. All receive methods honor the
// configured read timeout and return ErrTimeout when it elapses.
type Transport interface {
	// Connect establishes the underlying stream. It is idempotent: calling
	// it while connected is a no-op.
	Connect(ctx context.Context) error

	// Disconnect closes the stream. Always safe to call, including when
	// already disconnected.
	Disconnect() error

	// Connected reports whether the stream exists and neither side has
	// signaled close.
	Connected() bool

	// Send writes the full frame to the link.
	Send(ctx context.Context, frame []byte) error

	// ReceiveUntil reads until the terminator byte is observed and returns
	// everything read, terminator included.
	ReceiveUntil(ctx context.Context, terminator byte) ([]byte, error)

	// ReceiveBytes reads exactly n bytes. Used for fixed-width trailing
	// fields that follow a terminator (e.g. a CompoWay/F BCC byte).
	ReceiveBytes(ctx context.Context, n int) ([]byte, error)
}
