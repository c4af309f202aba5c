package ascii

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/optodyne/go-laser/logger"
	"github.com/optodyne/go-laser/transport"
)

// DefaultRetryLimit is the number of additional attempts made when the
// device answers an exchange with an in-band fault. The instrument emits
// transient fault replies under load; a bounded retry absorbs these while a
// persistently faulting register still surfaces the final fault.
const DefaultRetryLimit = 15

// Register is one named, addressable value on one hardware module.
//
// A Register holds a non-owning reference to the shared Commander; it never
// opens or closes the connection. All hardware exchanges run under the
// Commander's serialization guard for their full duration, including the
// verifying read after a write and all fault retries.
//
// The stored value is only ever mutated by a successful read, or directly
// by a write in simulation mode. Timeouts, device faults, and decode errors
// leave it unchanged.
type Register struct {
	moduleName   string
	moduleID     int
	registerName string

	readOnly   bool
	domain     Domain
	simulation bool
	retryLimit int
	unitCutset string

	commander *transport.Commander
	logger    logger.Logger

	mu       sync.Mutex
	value    string
	hasValue bool
}

// RegisterOption is a functional option for configuring a Register.
type RegisterOption interface {
	apply(*Register) error
}

type regOptFunc func(*Register) error

func (f regOptFunc) apply(r *Register) error { return f(r) }

// ReadOnly marks the register read-only: every write attempt fails with
// ErrReadOnly before any I/O.
func ReadOnly() RegisterOption {
	return regOptFunc(func(r *Register) error {
		r.readOnly = true
		return nil
	})
}

// WithDomain sets the accepted-value domain. Required for writable
// registers.
func WithDomain(d Domain) RegisterOption {
	return regOptFunc(func(r *Register) error {
		if d == nil {
			return errors.New("ascii: domain must not be nil")
		}
		r.domain = d

		return nil
	})
}

// WithSimulation enables simulation mode: writes bypass the hardware round
// trip and set the stored value directly, and reads return the stored
// value. Used for host-side testing without hardware.
func WithSimulation(enabled bool) RegisterOption {
	return regOptFunc(func(r *Register) error {
		r.simulation = enabled
		return nil
	})
}

// WithRetryLimit sets the number of additional attempts on in-band device
// faults.
func WithRetryLimit(n int) RegisterOption {
	return regOptFunc(func(r *Register) error {
		if n < 0 {
			return fmt.Errorf("ascii: retry limit %d must not be negative", n)
		}
		r.retryLimit = n

		return nil
	})
}

// WithUnitSuffixes sets the characters stripped from the right of a read
// payload before it is stored, e.g. "mn" for a wavelength register
// reporting "525nm" or "C" for a temperature register reporting "45C".
//
// The rule is scoped per register: a register whose legitimate value could
// end in one of these characters simply omits the option.
func WithUnitSuffixes(cutset string) RegisterOption {
	return regOptFunc(func(r *Register) error {
		r.unitCutset = cutset
		return nil
	})
}

// WithRegisterLogger sets the logger for the register.
func WithRegisterLogger(l logger.Logger) RegisterOption {
	return regOptFunc(func(r *Register) error {
		if l == nil {
			return errors.New("ascii: logger must not be nil")
		}
		r.logger = l

		return nil
	})
}

// NewRegister creates a Register addressed by (moduleName, moduleID,
// registerName) on the shared commander.
//
// Registers are writable by default and must then carry a domain via
// WithDomain; constructing a writable register without one fails with
// ErrMissingDomain. This is a construction-time invariant, not a runtime
// check.
func NewRegister(commander *transport.Commander, moduleName string, moduleID int, registerName string, opts ...RegisterOption) (*Register, error) {
	if commander == nil {
		return nil, errors.New("ascii: commander must not be nil")
	}

	r := &Register{
		moduleName:   moduleName,
		moduleID:     moduleID,
		registerName: registerName,
		retryLimit:   DefaultRetryLimit,
		commander:    commander,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(r); err != nil {
			return nil, err
		}
	}

	if !r.readOnly && r.domain == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDomain, r.FullName())
	}

	r.logger = r.logger.With("register", r.FullName())

	return r, nil
}

// FullName returns the "module/id/register" address of the register.
func (r *Register) FullName() string {
	return fmt.Sprintf("%s/%d/%s", r.moduleName, r.moduleID, r.registerName)
}

// ModuleName returns the hardware module name.
func (r *Register) ModuleName() string { return r.moduleName }

// ModuleID returns the hardware module ID.
func (r *Register) ModuleID() int { return r.moduleID }

// RegisterName returns the register name within the module.
func (r *Register) RegisterName() string { return r.registerName }

// IsReadOnly reports whether writes are rejected unconditionally.
func (r *Register) IsReadOnly() bool { return r.readOnly }

// Domain returns the accepted-value domain, nil for read-only registers.
func (r *Register) Domain() Domain { return r.domain }

// Simulated reports whether the register is in simulation mode.
func (r *Register) Simulated() bool { return r.simulation }

// Value returns the last observed value and whether one has been observed.
func (r *Register) Value() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.value, r.hasValue
}

// CreateGetMessage builds the read request frame. Pure: no I/O, no failure
// mode.
func (r *Register) CreateGetMessage() []byte {
	return BuildReadFrame(r.moduleName, r.moduleID, r.registerName)
}

// CreateSetMessage builds the write request frame for value, validating it
// against the register's capability and domain. No I/O is performed.
func (r *Register) CreateSetMessage(value string) ([]byte, error) {
	if r.readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, r.FullName())
	}

	if !r.domain.Contains(value) {
		return nil, fmt.Errorf("%w: %q not in %s", ErrOutOfDomain, value, r.domain)
	}

	return BuildWriteFrame(r.moduleName, r.moduleID, r.registerName, value), nil
}

// ReadValue reads the register from the instrument, stores the observed
// value, and returns it.
//
// In simulation mode the stored value is returned without touching the
// wire; reading a simulated register before any write fails.
func (r *Register) ReadValue(ctx context.Context) (string, error) {
	if r.simulation {
		value, ok := r.Value()
		if !ok {
			return "", fmt.Errorf("ascii: %s has no simulated value yet", r.FullName())
		}

		return value, nil
	}

	var value string

	err := r.commander.Exclusive(ctx, func(ex transport.Exchange) error {
		v, err := r.exchange(ctx, ex, r.CreateGetMessage())
		if err != nil {
			return err
		}
		value = v

		return nil
	})
	if err != nil {
		return "", err
	}

	value = r.trimUnits(value)
	r.store(value)

	return value, nil
}

// SetValue validates value, writes it to the instrument, and confirms the
// write with a verifying read performed under the same guard acquisition.
// The protocol offers no other way to confirm a write took effect, so the
// read-back value (not the requested one) is stored.
//
// Validation failures surface before any I/O. In simulation mode the value
// is stored directly with zero I/O.
func (r *Register) SetValue(ctx context.Context, value string) error {
	frame, err := r.CreateSetMessage(value)
	if err != nil {
		return err
	}

	if r.simulation {
		r.store(value)
		return nil
	}

	var readback string

	err = r.commander.Exclusive(ctx, func(ex transport.Exchange) error {
		if _, err := r.exchange(ctx, ex, frame); err != nil {
			return err
		}

		v, err := r.exchange(ctx, ex, r.CreateGetMessage())
		if err != nil {
			return err
		}
		readback = v

		return nil
	})
	if err != nil {
		return err
	}

	r.store(r.trimUnits(readback))

	return nil
}

// exchange performs one request/reply pair with bounded retry on in-band
// device faults. Transport errors (timeout, not connected) and decode
// errors abort immediately; only ErrDeviceFault is retried, with the
// device's error text logged on every attempt.
func (r *Register) exchange(ctx context.Context, ex transport.Exchange, frame []byte) (string, error) {
	var lastFault error

	for attempt := 0; attempt <= r.retryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := ex.Send(ctx, frame); err != nil {
			return "", err
		}

		raw, err := ex.ReceiveUntil(ctx, ETX)
		if err != nil {
			return "", err
		}

		payload, err := ParseReply(raw)
		if err == nil {
			return payload, nil
		}

		if !errors.Is(err, ErrDeviceFault) {
			return "", err
		}

		lastFault = err
		r.logger.Warn("device fault reply, retrying",
			"attempt", attempt+1, "limit", r.retryLimit+1, "fault", err.Error())
	}

	return "", fmt.Errorf("retries exhausted: %w", lastFault)
}

func (r *Register) trimUnits(value string) string {
	if r.unitCutset == "" {
		return value
	}

	return strings.TrimRight(value, r.unitCutset)
}

func (r *Register) store(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.value = value
	r.hasValue = true
}
