// Package mockdev provides an in-memory responder implementing the
// instrument's request/reply wire contract, plus a Transport backed by it.
// It exists for host-side testing: integration-style tests and the CLI's
// simulate mode run against it instead of hardware.
package mockdev

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// Wire bytes shared with the protocol packages. Duplicated here so the
// responder stays independent of the driver code it is used to test.
const (
	stx byte = 0x02
	etx byte = 0x03
)

const faultPrefix = "'''"

// Device is a programmable simulated instrument. It answers ASCII register
// frames from a register table and CompoWay/F frames from per-node variable
// areas, and can be instructed to emit in-band faults or drop replies.
type Device struct {
	mu sync.Mutex

	// registers maps "Module/ID/Register" to the current value text.
	registers map[string]string

	// faults holds the number of '''-prefixed fault replies still to be
	// emitted per register key before answering normally.
	faults map[string]int

	faultText string

	// dropReplies is the number of requests to swallow without replying.
	dropReplies int

	// words maps node -> variableCode+address -> stored word.
	words map[string]map[string]uint16

	// running tracks the run/stop state per CompoWay/F node.
	running map[string]bool
}

// New creates an empty simulated device.
func New() *Device {
	return &Device{
		registers: make(map[string]string),
		faults:    make(map[string]int),
		faultText: "Error: (12) device busy",
		words:     make(map[string]map[string]uint16),
		running:   make(map[string]bool),
	}
}

func registerKey(module string, id int, name string) string {
	return fmt.Sprintf("%s/%d/%s", module, id, name)
}

// SetRegister sets the value answered for an ASCII register.
func (d *Device) SetRegister(module string, id int, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.registers[registerKey(module, id, name)] = value
}

// Register returns the current value of an ASCII register.
func (d *Device) Register(module string, id int, name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.registers[registerKey(module, id, name)]

	return v, ok
}

// InjectFaults makes the next n exchanges on the given register answer with
// an in-band fault reply before returning to normal replies.
func (d *Device) InjectFaults(module string, id int, name string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.faults[registerKey(module, id, name)] = n
}

// SetFaultText sets the device error message used for injected faults.
func (d *Device) SetFaultText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.faultText = text
}

// DropReplies makes the device swallow the next n requests without
// answering, simulating reply timeouts.
func (d *Device) DropReplies(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dropReplies = n
}

// SetWord sets a CompoWay/F variable-area word on the given node.
func (d *Device) SetWord(node, variableCode, address string, value uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.words[node] == nil {
		d.words[node] = make(map[string]uint16)
	}
	d.words[node][variableCode+address] = value
}

// Word returns a CompoWay/F variable-area word.
func (d *Device) Word(node, variableCode, address string) (uint16, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.words[node][variableCode+address]

	return v, ok
}

// Running reports the run/stop state of a CompoWay/F node.
func (d *Device) Running(node string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.running[node]
}

// HandleRequest answers one request frame. The second return value is false
// when the reply is dropped (simulated timeout).
func (d *Device) HandleRequest(frame []byte) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dropReplies > 0 {
		d.dropReplies--
		return nil, false
	}

	if len(frame) > 0 && frame[0] == stx {
		return d.handleCompoWay(frame), true
	}

	return d.handleASCII(frame), true
}

// --- ASCII protocol ---

func (d *Device) handleASCII(frame []byte) []byte {
	text := strings.TrimSuffix(string(frame), "\r")
	if !strings.HasPrefix(text, "/") {
		return asciiFault("Error: (-1) malformed request")
	}

	parts := strings.Split(strings.TrimPrefix(text, "/"), "/")

	switch len(parts) {
	case 3: // read
		key := strings.Join(parts, "/")
		if reply, faulted := d.consumeFault(key); faulted {
			return reply
		}

		value, ok := d.registers[key]
		if !ok {
			return asciiFault("Error: (-5) unknown register")
		}

		return asciiReply(value)

	case 4: // write
		key := strings.Join(parts[:3], "/")
		if reply, faulted := d.consumeFault(key); faulted {
			return reply
		}

		if _, ok := d.registers[key]; !ok {
			return asciiFault("Error: (-5) unknown register")
		}

		d.registers[key] = parts[3]

		return asciiReply(parts[3])

	default:
		return asciiFault("Error: (-1) malformed request")
	}
}

func (d *Device) consumeFault(key string) ([]byte, bool) {
	if d.faults[key] > 0 {
		d.faults[key]--
		return asciiFault(d.faultText), true
	}

	return nil, false
}

func asciiReply(value string) []byte {
	return append([]byte(value), etx)
}

func asciiFault(text string) []byte {
	return append([]byte(faultPrefix+text), etx)
}

// --- CompoWay/F protocol ---

func (d *Device) handleCompoWay(frame []byte) []byte {
	etxIdx := bytes.IndexByte(frame, etx)
	if etxIdx < 0 || etxIdx != len(frame)-2 || len(frame) < 8 {
		return compoWayShort("?", "14")
	}

	node := string(frame[1])

	// Verify the request BCC like real hardware does.
	if xorOf(frame[1:etxIdx+1]) != frame[len(frame)-1] {
		return compoWayShort(node, "13")
	}

	pdu := string(frame[5:etxIdx])
	if len(pdu) < 4 {
		return compoWayShort(node, "14")
	}

	command := pdu[:4]

	switch command {
	case "0101": // variable area read
		if len(pdu) != 16 {
			return compoWayReply(node, command, "1002", "")
		}

		key := pdu[4:10] // variable code + address
		word, ok := d.words[node][key]
		if !ok {
			return compoWayReply(node, command, "1103", "")
		}

		return compoWayReply(node, command, "0000", fmt.Sprintf("%04X", word))

	case "0102": // variable area write
		if len(pdu) != 20 {
			return compoWayReply(node, command, "1002", "")
		}

		key := pdu[4:10]
		var word uint16
		if _, err := fmt.Sscanf(pdu[16:20], "%04X", &word); err != nil {
			return compoWayReply(node, command, "1100", "")
		}

		if d.words[node] == nil {
			d.words[node] = make(map[string]uint16)
		}
		d.words[node][key] = word

		return compoWayReply(node, command, "0000", "")

	case "3005": // operation command
		if len(pdu) != 8 {
			return compoWayReply(node, command, "1002", "")
		}

		if pdu[4:6] == "01" { // run/stop
			d.running[node] = pdu[6:8] == "00"
			return compoWayReply(node, command, "0000", "")
		}

		return compoWayReply(node, command, "0401", "")

	default:
		return compoWayReply(node, command, "0401", "")
	}
}

func xorOf(data []byte) byte {
	var bcc byte
	for _, b := range data {
		bcc ^= b
	}

	return bcc
}

func compoWayReply(node, echo, responseCode, payload string) []byte {
	body := []byte(node + "00" + "00" + echo + responseCode + payload)
	body = append(body, etx)

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, stx)
	frame = append(frame, body...)
	frame = append(frame, xorOf(body))

	return frame
}

// compoWayShort answers with the frame-error short form carrying only an
// end code.
func compoWayShort(node, endCode string) []byte {
	body := []byte(node + "00" + endCode)
	body = append(body, etx)

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, stx)
	frame = append(frame, body...)
	frame = append(frame, xorOf(body))

	return frame
}
