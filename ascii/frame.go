// Package ascii implements the line-oriented ASCII register protocol of the
// tunable-laser instrument.
//
// Requests are slash-delimited paths terminated by a carriage return:
//
//	/<module>/<id>/<register>\r          read
//	/<module>/<id>/<register>/<value>\r  write
//
// Replies are payload bytes terminated by a single ETX byte (0x03). A
// success payload is the raw value text, possibly suffixed with a unit
// character; a fault payload begins with three apostrophes followed by the
// device's error message.
package ascii

import (
	"fmt"
	"strings"
)

// ETX terminates every reply from the instrument.
const ETX byte = 0x03

// FaultPrefix marks an in-band device fault reply.
const FaultPrefix = "'''"

// BuildReadFrame constructs the read request frame for one register
// address. Pure and deterministic.
func BuildReadFrame(moduleName string, moduleID int, registerName string) []byte {
	return []byte(fmt.Sprintf("/%s/%d/%s\r", moduleName, moduleID, registerName))
}

// BuildWriteFrame constructs the write request frame for one register
// address and value. Pure and deterministic; domain validation is the
// Register's responsibility.
func BuildWriteFrame(moduleName string, moduleID int, registerName, value string) []byte {
	return []byte(fmt.Sprintf("/%s/%d/%s/%s\r", moduleName, moduleID, registerName, value))
}

// ParseReply decodes a raw reply into its payload text.
//
// It rejects non-ASCII bytes with ErrDecode, strips the ETX terminator and
// any trailing CR/LF, and reports ErrDeviceFault (wrapping the device's
// error text) when the payload carries the in-band fault prefix.
func ParseReply(raw []byte) (string, error) {
	for _, b := range raw {
		if b > 0x7F {
			return "", fmt.Errorf("%w: byte 0x%02X", ErrDecode, b)
		}
	}

	payload := string(raw)
	payload = strings.TrimRight(payload, string(ETX))
	payload = strings.TrimRight(payload, "\r\n")

	if strings.HasPrefix(payload, FaultPrefix) {
		text := strings.TrimPrefix(payload, FaultPrefix)
		return "", fmt.Errorf("%w: %s", ErrDeviceFault, strings.TrimSpace(text))
	}

	return payload, nil
}
