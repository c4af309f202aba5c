// Package compoway implements the CompoWay/F binary register protocol used
// by the laser's embedded temperature controller.
//
// A request frame is:
//
//	STX node "00" "0" <PDU> ETX <BCC>
//
// where the PDU concatenates fixed-width command fields (MRC/SRC, variable
// code, address, bit position, element count, data; each 2 or 4 ASCII
// characters) and BCC is the XOR of every byte from the node through the
// ETX, the wrapping STX excluded.
//
// A response frame is decoded by exact byte counts, not line-based parsing:
//
//	STX(1) node(1) sub-address(2) end-code(2) MRC/SRC-echo(4)
//	response-code(4) payload(variable) ETX(1) BCC(1)
package compoway

import (
	"bytes"
	"fmt"
)

// Frame wrapper bytes.
const (
	STX byte = 0x02
	ETX byte = 0x03
)

// Fixed header fields of every request frame.
const (
	subAddress = "00"
	sid        = "0"
)

// Command codes (MRC+SRC) for the variable-area and operation commands.
const (
	readVariableCommand  = "0101"
	writeVariableCommand = "0102"
	operationCommand     = "3005"
)

// GenerateBCC computes the block check character: the running XOR of every
// byte in body, left to right. The device verifies it on receipt; body must
// span the node through the trailing ETX, excluding the wrapping STX.
func GenerateBCC(body []byte) byte {
	var bcc byte
	for _, b := range body {
		bcc ^= b
	}

	return bcc
}

// BuildFrame wraps a PDU into a complete request frame for the given node.
func BuildFrame(node, pdu string) []byte {
	body := make([]byte, 0, len(node)+len(subAddress)+len(sid)+len(pdu)+1)
	body = append(body, node...)
	body = append(body, subAddress...)
	body = append(body, sid...)
	body = append(body, pdu...)
	body = append(body, ETX)

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, STX)
	frame = append(frame, body...)
	frame = append(frame, GenerateBCC(body))

	return frame
}

// ReadVariablePDU builds the PDU reading elementCount words starting at
// address in the given variable area.
func ReadVariablePDU(variableCode, address string, elementCount int) string {
	return fmt.Sprintf("%s%s%s00%04d", readVariableCommand, variableCode, address, elementCount)
}

// WriteVariablePDU builds the PDU writing the word-aligned data string to
// address in the given variable area.
func WriteVariablePDU(variableCode, address string, elementCount int, data string) string {
	return fmt.Sprintf("%s%s%s00%04d%s", writeVariableCommand, variableCode, address, elementCount, data)
}

// OperationPDU builds the PDU for an operation command (e.g. run/stop).
func OperationPDU(commandCode, relatedInfo string) string {
	return operationCommand + commandCode + relatedInfo
}

// Response is a decoded CompoWay/F reply.
type Response struct {
	Node         string
	SubAddress   string
	EndCode      string
	CommandEcho  string // MRC/SRC echo; empty in short-form frame-error replies
	ResponseCode string // empty in short-form frame-error replies
	Payload      string
	BCC          byte
}

// Fault returns a device fault error when the end code or response code
// signals a failure, nil otherwise.
func (r *Response) Fault() error {
	if r.EndCode != NormalEndCode {
		return fmt.Errorf("%w: %s (end code %s)", ErrDeviceFault, EndCodeText(r.EndCode), r.EndCode)
	}

	if r.ResponseCode != "" && r.ResponseCode != NormalResponseCode {
		return fmt.Errorf("%w: %s (response code %s)", ErrDeviceFault, ResponseCodeText(r.ResponseCode), r.ResponseCode)
	}

	return nil
}

// Response layout offsets, relative to the start of the frame.
const (
	nodeOffset    = 1
	subOffset     = 2
	endOffset     = 4
	echoOffset    = 6
	rcOffset      = 10
	payloadOffset = 14
)

// minShortResponse is a frame-error reply with no echo/response-code:
// STX node sub(2) end(2) ETX BCC.
const minShortResponse = 8

// ParseResponse decodes a raw reply, verifying the frame wrapper and BCC.
//
// A reply whose end code reports a frame-level error may omit the command
// echo, response code, and payload; both forms are accepted. The caller
// checks Response.Fault for device-signaled failures.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < minShortResponse {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedReply, len(raw))
	}

	if raw[0] != STX {
		return nil, fmt.Errorf("%w: missing STX", ErrMalformedReply)
	}

	etx := bytes.IndexByte(raw, ETX)
	if etx < 0 || etx != len(raw)-2 {
		return nil, fmt.Errorf("%w: missing or misplaced ETX", ErrMalformedReply)
	}

	// BCC covers everything after STX through the ETX.
	if want, got := GenerateBCC(raw[1:etx+1]), raw[len(raw)-1]; want != got {
		return nil, fmt.Errorf("%w: computed 0x%02X, received 0x%02X", ErrBCCMismatch, want, got)
	}

	resp := &Response{
		Node:       string(raw[nodeOffset : nodeOffset+1]),
		SubAddress: string(raw[subOffset:endOffset]),
		EndCode:    string(raw[endOffset:echoOffset]),
		BCC:        raw[len(raw)-1],
	}

	if etx == echoOffset {
		// Short form: frame rejected before command interpretation.
		return resp, nil
	}

	if etx < payloadOffset {
		return nil, fmt.Errorf("%w: truncated command echo", ErrMalformedReply)
	}

	resp.CommandEcho = string(raw[echoOffset:rcOffset])
	resp.ResponseCode = string(raw[rcOffset:payloadOffset])
	resp.Payload = string(raw[payloadOffset:etx])

	return resp, nil
}
