package compoway

import "fmt"

// NormalEndCode is the end code of a frame accepted by the device.
const NormalEndCode = "00"

// NormalResponseCode is the response code of a successfully executed
// command.
const NormalResponseCode = "0000"

// endCodes maps CompoWay/F end codes to human-readable descriptions.
// The end code reports frame-level acceptance, before the command is
// interpreted.
var endCodes = map[string]string{
	"00": "Normal completion",
	"0F": "FINS command error",
	"10": "Parity error",
	"11": "Framing error",
	"12": "Overrun error",
	"13": "BCC error",
	"14": "Format error",
	"16": "Sub-address error",
	"18": "Frame length error",
}

// responseCodes maps CompoWay/F response codes to human-readable
// descriptions. The response code reports command-level execution.
var responseCodes = map[string]string{
	"0000": "Normal completion",
	"0401": "Unsupported command",
	"1001": "Command length too long",
	"1002": "Command length too short",
	"1003": "Element count and data count do not agree",
	"1100": "Parameter error",
	"1101": "Area type error",
	"1103": "Start address out-of-range error",
	"1104": "End address out-of-range error",
	"110B": "Response length too long",
	"2203": "Operation error",
	"3003": "Read-only error",
}

// EndCodeText describes an end code. Unrecognized codes report a generic
// description rather than failing the lookup.
func EndCodeText(code string) string {
	if text, ok := endCodes[code]; ok {
		return text
	}

	return fmt.Sprintf("unknown end code %q", code)
}

// ResponseCodeText describes a response code. Unrecognized codes report a
// generic description rather than failing the lookup.
func ResponseCodeText(code string) string {
	if text, ok := responseCodes[code]; ok {
		return text
	}

	return fmt.Sprintf("unknown response code %q", code)
}
