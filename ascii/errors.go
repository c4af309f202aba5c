package ascii

import "errors"

// Sentinel errors for the ASCII register protocol.
//
// Validation errors (ErrReadOnly, ErrOutOfDomain) are detected before any
// I/O and are never retried. ErrDeviceFault is retried up to the register's
// fault-retry bound before being escalated with the device's error text.
// ErrDecode implies a framing desynchronization and is never retried.
// Timeout and not-connected conditions surface as the transport package's
// ErrTimeout and ErrNotConnected.
var (
	// ErrReadOnly indicates a write was attempted on a read-only register.
	ErrReadOnly = errors.New("ascii: register is read-only")

	// ErrOutOfDomain indicates the value is not a member of the register's
	// accepted-value domain.
	ErrOutOfDomain = errors.New("ascii: value outside accepted domain")

	// ErrMissingDomain indicates a writable register was constructed
	// without an accepted-value domain.
	ErrMissingDomain = errors.New("ascii: writable register requires a domain")

	// ErrDeviceFault indicates the device replied with an in-band error
	// marker. The wrapped message carries the device's error text.
	ErrDeviceFault = errors.New("ascii: device reported fault")

	// ErrDecode indicates the reply bytes are not valid ASCII.
	ErrDecode = errors.New("ascii: reply is not valid ASCII")
)
