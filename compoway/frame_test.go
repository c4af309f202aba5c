package compoway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildReply assembles a well-formed reply frame for tests.
func buildReply(node, endCode, echo, rc, payload string) []byte {
	body := []byte(node + "00" + endCode + echo + rc + payload)
	body = append(body, ETX)

	frame := append([]byte{STX}, body...)

	return append(frame, GenerateBCC(body))
}

func TestGenerateBCC(t *testing.T) {
	// Vendor manual worked example.
	assert.Equal(t, byte(0x35), GenerateBCC([]byte("000000503\x03")))

	assert.Equal(t, byte(0x00), GenerateBCC(nil))
	assert.Equal(t, byte('A'), GenerateBCC([]byte{'A'}))
	assert.Equal(t, byte(0x00), GenerateBCC([]byte{'A', 'A'}))
}

func TestBuildFrame(t *testing.T) {
	frame := BuildFrame("1", ReadVariablePDU("81", "0003", 1))

	want := []byte("\x021000" + "0101" + "81" + "0003" + "00" + "0001" + "\x03")
	want = append(want, GenerateBCC(want[1:]))

	assert.Equal(t, want, frame)

	// Wrapper invariants.
	assert.Equal(t, STX, frame[0])
	assert.Equal(t, ETX, frame[len(frame)-2])
	assert.Equal(t, GenerateBCC(frame[1:len(frame)-1]), frame[len(frame)-1])
}

func TestPDUBuilders(t *testing.T) {
	assert.Equal(t, "0101810003000001", ReadVariablePDU("81", "0003", 1))
	assert.Equal(t, "010281000300000100FF", WriteVariablePDU("81", "0003", 1, "00FF"))
	assert.Equal(t, "30050100", OperationPDU("01", "00"))
	assert.Equal(t, "30050101", OperationPDU("01", "01"))
}

func TestParseResponse_Normal(t *testing.T) {
	raw := buildReply("1", "00", "0101", "0000", "002D")

	resp, err := ParseResponse(raw)
	require.NoError(t, err)

	assert.Equal(t, "1", resp.Node)
	assert.Equal(t, "00", resp.SubAddress)
	assert.Equal(t, "00", resp.EndCode)
	assert.Equal(t, "0101", resp.CommandEcho)
	assert.Equal(t, "0000", resp.ResponseCode)
	assert.Equal(t, "002D", resp.Payload)
	require.NoError(t, resp.Fault())
}

func TestParseResponse_EmptyPayload(t *testing.T) {
	resp, err := ParseResponse(buildReply("1", "00", "0102", "0000", ""))
	require.NoError(t, err)

	assert.Equal(t, "0102", resp.CommandEcho)
	assert.Empty(t, resp.Payload)
	require.NoError(t, resp.Fault())
}

func TestParseResponse_ShortForm(t *testing.T) {
	// A frame-level rejection omits echo, response code, and payload.
	resp, err := ParseResponse(buildReply("1", "13", "", "", ""))
	require.NoError(t, err)

	assert.Equal(t, "13", resp.EndCode)
	assert.Empty(t, resp.CommandEcho)
	assert.Empty(t, resp.ResponseCode)

	fault := resp.Fault()
	require.ErrorIs(t, fault, ErrDeviceFault)
	assert.Contains(t, fault.Error(), "BCC error")
}

func TestParseResponse_DeviceFaultCodes(t *testing.T) {
	resp, err := ParseResponse(buildReply("1", "00", "0101", "1103", ""))
	require.NoError(t, err)

	fault := resp.Fault()
	require.ErrorIs(t, fault, ErrDeviceFault)
	assert.Contains(t, fault.Error(), "Start address out-of-range error")
}

func TestParseResponse_BCCMismatch(t *testing.T) {
	raw := buildReply("1", "00", "0101", "0000", "002D")
	raw[len(raw)-1] ^= 0xFF

	_, err := ParseResponse(raw)
	require.ErrorIs(t, err, ErrBCCMismatch)
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := ParseResponse(nil)
	require.ErrorIs(t, err, ErrMalformedReply)

	_, err = ParseResponse([]byte("too short"))
	require.Error(t, err)

	// Missing STX.
	raw := buildReply("1", "00", "0101", "0000", "002D")
	raw[0] = 'X'
	_, err = ParseResponse(raw)
	require.ErrorIs(t, err, ErrMalformedReply)

	// ETX not at the penultimate position.
	raw = buildReply("1", "00", "0101", "0000", "002D")
	raw[len(raw)-2] = 'X'
	_, err = ParseResponse(raw)
	require.ErrorIs(t, err, ErrMalformedReply)
}

func TestCodeText(t *testing.T) {
	assert.Equal(t, "Normal completion", EndCodeText("00"))
	assert.Equal(t, "Format error", EndCodeText("14"))
	assert.Contains(t, EndCodeText("ZZ"), "unknown end code")

	assert.Equal(t, "Read-only error", ResponseCodeText("3003"))
	assert.Equal(t, "Operation error", ResponseCodeText("2203"))
	assert.Contains(t, ResponseCodeText("FFFF"), "unknown response code")
}
