package compoway

import "errors"

// Sentinel errors for the CompoWay/F register protocol.
var (
	// ErrReadOnly indicates a write was attempted on a read-only data
	// register.
	ErrReadOnly = errors.New("compoway: register is read-only")

	// ErrWriteOnly indicates a read was attempted on an operation
	// register. Operation registers are write-only by capability, not by
	// an empty domain.
	ErrWriteOnly = errors.New("compoway: operation register is write-only")

	// ErrOutOfDomain indicates the value is not a member of the register's
	// accepted-value domain.
	ErrOutOfDomain = errors.New("compoway: value outside accepted domain")

	// ErrMissingDomain indicates a writable register was constructed
	// without an accepted-value domain.
	ErrMissingDomain = errors.New("compoway: writable register requires a domain")

	// ErrDeviceFault indicates the device answered with a non-normal end
	// code or response code. The wrapped message carries the decoded
	// fault description.
	ErrDeviceFault = errors.New("compoway: device reported fault")

	// ErrMalformedReply indicates the reply does not follow the fixed
	// CompoWay/F response layout. Implies framing desynchronization;
	// never retried.
	ErrMalformedReply = errors.New("compoway: malformed reply")

	// ErrBCCMismatch indicates the received block check character does not
	// match the recomputed XOR over the frame body. Never retried.
	ErrBCCMismatch = errors.New("compoway: BCC mismatch")
)
