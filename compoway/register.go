package compoway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/optodyne/go-laser/ascii"
	"github.com/optodyne/go-laser/logger"
	"github.com/optodyne/go-laser/transport"
)

// DefaultRetryLimit is the number of additional attempts made when the
// device answers with a non-normal end code or response code.
const DefaultRetryLimit = 15

// Field widths of the variable-area addressing scheme.
const (
	variableCodeLen = 2
	addressLen      = 4
	commandCodeLen  = 2
)

// registerBase carries the state shared by both register kinds.
//
// Like the ASCII registers, a CompoWay/F register holds a non-owning
// reference to the shared Commander and performs every hardware exchange
// under its serialization guard. The stored value is only mutated by a
// successful exchange or, in simulation mode, directly by a write.
type registerBase struct {
	moduleName string
	node       string // string form of the module ID, used in the frame header
	name       string

	simulation bool
	retryLimit int

	commander *transport.Commander
	logger    logger.Logger

	mu       sync.Mutex
	value    string
	hasValue bool
}

// FullName returns the "module/node/register" address of the register.
func (b *registerBase) FullName() string {
	return fmt.Sprintf("%s/%s/%s", b.moduleName, b.node, b.name)
}

// Node returns the node string used in the frame header.
func (b *registerBase) Node() string { return b.node }

// Simulated reports whether the register is in simulation mode.
func (b *registerBase) Simulated() bool { return b.simulation }

// Value returns the last observed value and whether one has been observed.
func (b *registerBase) Value() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.value, b.hasValue
}

func (b *registerBase) store(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = value
	b.hasValue = true
}

// exchange performs one request/reply pair with bounded retry on device
// faults. Each reply is read by exact byte count: everything through the
// ETX, then the single trailing BCC byte. Malformed replies and BCC
// mismatches imply framing desynchronization and abort immediately; only
// device-signaled faults are retried.
func (b *registerBase) exchange(ctx context.Context, ex transport.Exchange, frame []byte) (string, error) {
	var lastFault error

	for attempt := 0; attempt <= b.retryLimit; attempt++ {
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

		bcc, err := ex.ReceiveBytes(ctx, 1)
		if err != nil {
			return "", err
		}

		resp, err := ParseResponse(append(raw, bcc...))
		if err != nil {
			return "", err
		}

		fault := resp.Fault()
		if fault == nil {
			return resp.Payload, nil
		}

		lastFault = fault
		b.logger.Warn("device fault reply, retrying",
			"attempt", attempt+1, "limit", b.retryLimit+1, "fault", fault.Error())
	}

	return "", fmt.Errorf("retries exhausted: %w", lastFault)
}

// Option is a functional option for configuring a CompoWay/F register.
type Option interface {
	apply(*regOptions) error
}

type regOptions struct {
	readOnly   bool
	domain     ascii.Domain
	simulation bool
	retryLimit int
	logger     logger.Logger
}

type optFunc func(*regOptions) error

func (f optFunc) apply(o *regOptions) error { return f(o) }

func newRegOptions(opts []Option) (*regOptions, error) {
	o := &regOptions{
		retryLimit: DefaultRetryLimit,
		logger:     logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// ReadOnly marks a data register read-only.
func ReadOnly() Option {
	return optFunc(func(o *regOptions) error {
		o.readOnly = true
		return nil
	})
}

// WithDomain sets the accepted-value domain. Required for writable data
// registers and for operation registers (the related-info values).
func WithDomain(d ascii.Domain) Option {
	return optFunc(func(o *regOptions) error {
		if d == nil {
			return errors.New("compoway: domain must not be nil")
		}
		o.domain = d

		return nil
	})
}

// WithSimulation enables simulation mode: writes set the stored value
// directly with zero I/O.
func WithSimulation(enabled bool) Option {
	return optFunc(func(o *regOptions) error {
		o.simulation = enabled
		return nil
	})
}

// WithRetryLimit sets the number of additional attempts on device faults.
func WithRetryLimit(n int) Option {
	return optFunc(func(o *regOptions) error {
		if n < 0 {
			return fmt.Errorf("compoway: retry limit %d must not be negative", n)
		}
		o.retryLimit = n

		return nil
	})
}

// WithLogger sets the logger for the register.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(o *regOptions) error {
		if l == nil {
			return errors.New("compoway: logger must not be nil")
		}
		o.logger = l

		return nil
	})
}

// DataRegister is a readable (and unless read-only, writable) numeric value
// in the device's variable area, word-aligned to 4-digit hex fields.
type DataRegister struct {
	registerBase

	variableCode string
	address      string
	readOnly     bool
	domain       ascii.Domain
}

// NewDataRegister creates a data register addressed by (variableCode,
// address) on the given node. Writable data registers require a domain.
func NewDataRegister(commander *transport.Commander, moduleName string, moduleID int, name, variableCode, address string, opts ...Option) (*DataRegister, error) {
	if commander == nil {
		return nil, errors.New("compoway: commander must not be nil")
	}

	if len(variableCode) != variableCodeLen {
		return nil, fmt.Errorf("compoway: variable code %q must be %d characters", variableCode, variableCodeLen)
	}

	if len(address) != addressLen {
		return nil, fmt.Errorf("compoway: address %q must be %d characters", address, addressLen)
	}

	o, err := newRegOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &DataRegister{
		registerBase: registerBase{
			moduleName: moduleName,
			node:       strconv.Itoa(moduleID),
			name:       name,
			simulation: o.simulation,
			retryLimit: o.retryLimit,
			commander:  commander,
		},
		variableCode: variableCode,
		address:      address,
		readOnly:     o.readOnly,
		domain:       o.domain,
	}

	if !r.readOnly && r.domain == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDomain, r.FullName())
	}

	r.logger = o.logger.With("register", r.FullName())

	return r, nil
}

// IsReadOnly reports whether writes are rejected unconditionally.
func (r *DataRegister) IsReadOnly() bool { return r.readOnly }

// Domain returns the accepted-value domain, nil for read-only registers.
func (r *DataRegister) Domain() ascii.Domain { return r.domain }

// CreateGetMessage builds the variable-area read frame. No I/O.
func (r *DataRegister) CreateGetMessage() ([]byte, error) {
	return BuildFrame(r.node, ReadVariablePDU(r.variableCode, r.address, 1)), nil
}

// CreateSetMessage builds the variable-area write frame for value,
// validating it against the register's capability and domain. No I/O.
func (r *DataRegister) CreateSetMessage(value string) ([]byte, error) {
	if r.readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, r.FullName())
	}

	if !r.domain.Contains(value) {
		return nil, fmt.Errorf("%w: %q not in %s", ErrOutOfDomain, value, r.domain)
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrOutOfDomain, value)
	}

	data := fmt.Sprintf("%04X", uint16(int16(n))) //nolint:gosec // word values are 16-bit by protocol

	return BuildFrame(r.node, WriteVariablePDU(r.variableCode, r.address, 1, data)), nil
}

// ReadValue reads the register, stores the observed value in decimal form,
// and returns it. In simulation mode the stored value is returned without
// touching the wire.
func (r *DataRegister) ReadValue(ctx context.Context) (string, error) {
	if r.simulation {
		value, ok := r.Value()
		if !ok {
			return "", fmt.Errorf("compoway: %s has no simulated value yet", r.FullName())
		}

		return value, nil
	}

	frame, _ := r.CreateGetMessage()

	var value string

	err := r.commander.Exclusive(ctx, func(ex transport.Exchange) error {
		payload, err := r.exchange(ctx, ex, frame)
		if err != nil {
			return err
		}

		value, err = decodeWord(payload)

		return err
	})
	if err != nil {
		return "", err
	}

	r.store(value)

	return value, nil
}

// SetValue validates value, writes it, and confirms the write with a
// verifying read under the same guard acquisition, storing the read-back
// value. In simulation mode the value is stored directly with zero I/O.
func (r *DataRegister) SetValue(ctx context.Context, value string) error {
	writeFrame, err := r.CreateSetMessage(value)
	if err != nil {
		return err
	}

	if r.simulation {
		r.store(value)
		return nil
	}

	readFrame, _ := r.CreateGetMessage()

	var readback string

	err = r.commander.Exclusive(ctx, func(ex transport.Exchange) error {
		if _, err := r.exchange(ctx, ex, writeFrame); err != nil {
			return err
		}

		payload, err := r.exchange(ctx, ex, readFrame)
		if err != nil {
			return err
		}

		readback, err = decodeWord(payload)

		return err
	})
	if err != nil {
		return err
	}

	r.store(readback)

	return nil
}

// decodeWord converts a 4-digit hex word payload into its signed decimal
// string form.
func decodeWord(payload string) (string, error) {
	if len(payload) != 4 {
		return "", fmt.Errorf("%w: payload %q is not a single word", ErrMalformedReply, payload)
	}

	word, err := strconv.ParseUint(payload, 16, 16)
	if err != nil {
		return "", fmt.Errorf("%w: payload %q is not hex", ErrMalformedReply, payload)
	}

	return strconv.Itoa(int(int16(word))), nil //nolint:gosec // word values are 16-bit by protocol
}

// OperationRegister is a write-only command trigger (e.g. run/stop). Read
// attempts fail immediately with ErrWriteOnly; this is a capability, not an
// empty-domain error.
type OperationRegister struct {
	registerBase

	commandCode string
	domain      ascii.Domain // accepted related-info values
}

// NewOperationRegister creates an operation register for the given command
// code. The domain enumerates the accepted related-info values.
func NewOperationRegister(commander *transport.Commander, moduleName string, moduleID int, name, commandCode string, opts ...Option) (*OperationRegister, error) {
	if commander == nil {
		return nil, errors.New("compoway: commander must not be nil")
	}

	if len(commandCode) != commandCodeLen {
		return nil, fmt.Errorf("compoway: command code %q must be %d characters", commandCode, commandCodeLen)
	}

	o, err := newRegOptions(opts)
	if err != nil {
		return nil, err
	}

	if o.readOnly {
		return nil, errors.New("compoway: operation register cannot be read-only")
	}

	r := &OperationRegister{
		registerBase: registerBase{
			moduleName: moduleName,
			node:       strconv.Itoa(moduleID),
			name:       name,
			simulation: o.simulation,
			retryLimit: o.retryLimit,
			commander:  commander,
		},
		commandCode: commandCode,
		domain:      o.domain,
	}

	if r.domain == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDomain, r.FullName())
	}

	r.logger = o.logger.With("register", r.FullName())

	return r, nil
}

// Domain returns the accepted related-info values.
func (r *OperationRegister) Domain() ascii.Domain { return r.domain }

// CreateGetMessage always fails: operation registers are write-only.
func (r *OperationRegister) CreateGetMessage() ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", ErrWriteOnly, r.FullName())
}

// CreateSetMessage builds the operation command frame for the given
// related-info value.
func (r *OperationRegister) CreateSetMessage(value string) ([]byte, error) {
	if !r.domain.Contains(value) {
		return nil, fmt.Errorf("%w: %q not in %s", ErrOutOfDomain, value, r.domain)
	}

	return BuildFrame(r.node, OperationPDU(r.commandCode, value)), nil
}

// ReadValue always fails: operation registers are write-only.
func (r *OperationRegister) ReadValue(_ context.Context) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrWriteOnly, r.FullName())
}

// SetValue triggers the operation. There is no verifying read; the written
// related-info value is stored on success. In simulation mode the value is
// stored directly with zero I/O.
func (r *OperationRegister) SetValue(ctx context.Context, value string) error {
	frame, err := r.CreateSetMessage(value)
	if err != nil {
		return err
	}

	if r.simulation {
		r.store(value)
		return nil
	}

	err = r.commander.Exclusive(ctx, func(ex transport.Exchange) error {
		_, err := r.exchange(ctx, ex, frame)
		return err
	})
	if err != nil {
		return err
	}

	r.store(value)

	return nil
}
