package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optodyne/go-laser/internal/pool"
	"github.com/optodyne/go-laser/logger"
)

// DefaultAcquireTimeout bounds how long a caller waits for the guard before
// giving up with ErrBusy. It must comfortably exceed the worst case for one
// full exchange including all fault retries.
const DefaultAcquireTimeout = 30 * time.Second

// Exchange grants frame-level I/O inside an Exclusive critical section.
// It is valid only for the duration of the callback it is passed to.
type Exchange interface {
	Send(ctx context.Context, frame []byte) error
	ReceiveUntil(ctx context.Context, terminator byte) ([]byte, error)
	ReceiveBytes(ctx context.Context, n int) ([]byte, error)
}

// Commander serializes register exchanges onto one shared Transport.
//
// The wire protocol carries no request-ID correlation: a reply can only be
// matched to the most recently sent request. Commander therefore admits at
// most one request/reply exchange at a time, for the full duration of a
// register operation (write, verifying read, and all retries). Waiters
// blocked on the guard are served in arrival order.
type Commander struct {
	transport      Transport
	sem            chan struct{}
	acquireTimeout time.Duration
	logger         logger.Logger
}

// CommanderOption configures a Commander.
type CommanderOption func(*Commander) error

// WithAcquireTimeout sets the maximum time a caller waits for the guard.
func WithAcquireTimeout(d time.Duration) CommanderOption {
	return func(c *Commander) error {
		if d <= 0 {
			return errors.New("transport: acquire timeout must be positive")
		}
		c.acquireTimeout = d

		return nil
	}
}

// WithCommanderLogger sets the logger for the Commander.
func WithCommanderLogger(l logger.Logger) CommanderOption {
	return func(c *Commander) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		c.logger = l

		return nil
	}
}

// NewCommander creates a Commander owning the serialization guard for t.
func NewCommander(t Transport, opts ...CommanderOption) (*Commander, error) {
	if t == nil {
		return nil, errors.New("transport: transport must not be nil")
	}

	c := &Commander{
		transport:      t,
		sem:            make(chan struct{}, 1),
		acquireTimeout: DefaultAcquireTimeout,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Connected reports whether the underlying transport is connected.
func (c *Commander) Connected() bool {
	return c.transport.Connected()
}

// Transport returns the underlying transport. Intended for the owning
// component (connect/disconnect); register code must go through Exclusive.
func (c *Commander) Transport() Transport {
	return c.transport
}

// Exclusive acquires the serialization guard, runs fn with an Exchange on
// the underlying transport, and releases the guard on every exit path.
//
// Acquisition is abandoned when ctx is canceled or the acquire timeout
// elapses (ErrBusy). A failed exchange inside fn releases the guard
// normally, so a wedged exchange never starves subsequent callers.
func (c *Commander) Exclusive(ctx context.Context, fn func(ex Exchange) error) error {
	timer := pool.GetTimer(c.acquireTimeout)
	defer pool.PutTimer(timer)

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: guard not acquired within %v", ErrBusy, c.acquireTimeout)
	}

	defer func() { <-c.sem }()

	return fn(c.transport)
}
