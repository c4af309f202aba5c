package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/optodyne/go-laser/logger"
)

// Default timeout values for transport clients.
const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 2 * time.Second
	DefaultSendTimeout    = 2 * time.Second

	DefaultBaudRate = 19200
)

// config holds the tunables shared by the TCP and serial clients.
type config struct {
	connectTimeout time.Duration
	readTimeout    time.Duration
	sendTimeout    time.Duration
	baudRate       int
	logger         logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		sendTimeout:    DefaultSendTimeout,
		baudRate:       DefaultBaudRate,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a transport client.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithConnectTimeout sets the dial/open timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithReadTimeout sets the receive timeout. The timeout applies to each
// ReceiveUntil/ReceiveBytes call as a whole, restarting on every call.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithSendTimeout sets the write timeout for sending a frame.
func WithSendTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: send timeout must be positive")
		}
		cfg.sendTimeout = d

		return nil
	})
}

// WithBaudRate sets the serial line speed. Ignored by the TCP client.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *config) error {
		if baud <= 0 {
			return fmt.Errorf("transport: invalid baud rate %d", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithLogger sets the logger for the client.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
