package mockdev

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optodyne/go-laser/transport"
)

func compoWayRequest(node, pdu string) []byte {
	body := []byte(node + "00" + "0" + pdu)
	body = append(body, etx)

	frame := append([]byte{stx}, body...)

	return append(frame, xorOf(body))
}

func TestDevice_ASCIIRead(t *testing.T) {
	dev := New()
	dev.SetRegister("MaxiOPG", 31, "WaveLength", "650nm")

	reply, ok := dev.HandleRequest([]byte("/MaxiOPG/31/WaveLength\r"))
	require.True(t, ok)
	assert.Equal(t, []byte("650nm\x03"), reply)

	reply, ok = dev.HandleRequest([]byte("/MaxiOPG/31/Unknown\r"))
	require.True(t, ok)
	assert.Equal(t, []byte("'''Error: (-5) unknown register\x03"), reply)
}

func TestDevice_ASCIIWrite(t *testing.T) {
	dev := New()
	dev.SetRegister("M_CPU800", 18, "Power", "OFF")

	reply, ok := dev.HandleRequest([]byte("/M_CPU800/18/Power/ON\r"))
	require.True(t, ok)
	assert.Equal(t, []byte("ON\x03"), reply)

	value, present := dev.Register("M_CPU800", 18, "Power")
	require.True(t, present)
	assert.Equal(t, "ON", value)

	// Writes to unknown registers are rejected, not created.
	reply, _ = dev.HandleRequest([]byte("/M_CPU800/18/Bogus/1\r"))
	assert.Equal(t, []byte("'''Error: (-5) unknown register\x03"), reply)

	_, present = dev.Register("M_CPU800", 18, "Bogus")
	assert.False(t, present)
}

func TestDevice_ASCIIMalformed(t *testing.T) {
	dev := New()

	reply, _ := dev.HandleRequest([]byte("garbage\r"))
	assert.Equal(t, []byte("'''Error: (-1) malformed request\x03"), reply)

	reply, _ = dev.HandleRequest([]byte("/only/two\r"))
	assert.Equal(t, []byte("'''Error: (-1) malformed request\x03"), reply)
}

func TestDevice_InjectFaults(t *testing.T) {
	dev := New()
	dev.SetRegister("CPU8000", 16, "Power", "ON")
	dev.InjectFaults("CPU8000", 16, "Power", 2)

	request := []byte("/CPU8000/16/Power\r")

	for i := 0; i < 2; i++ {
		reply, _ := dev.HandleRequest(request)
		assert.Equal(t, []byte("'''Error: (12) device busy\x03"), reply)
	}

	reply, _ := dev.HandleRequest(request)
	assert.Equal(t, []byte("ON\x03"), reply)
}

func TestDevice_SetFaultText(t *testing.T) {
	dev := New()
	dev.SetRegister("CPU8000", 16, "Power", "ON")
	dev.SetFaultText("Error: (31) interlock open")
	dev.InjectFaults("CPU8000", 16, "Power", 1)

	reply, _ := dev.HandleRequest([]byte("/CPU8000/16/Power\r"))
	assert.Equal(t, []byte("'''Error: (31) interlock open\x03"), reply)
}

func TestDevice_DropReplies(t *testing.T) {
	dev := New()
	dev.SetRegister("CPU8000", 16, "Power", "ON")
	dev.DropReplies(1)

	_, ok := dev.HandleRequest([]byte("/CPU8000/16/Power\r"))
	assert.False(t, ok)

	reply, ok := dev.HandleRequest([]byte("/CPU8000/16/Power\r"))
	require.True(t, ok)
	assert.Equal(t, []byte("ON\x03"), reply)
}

func TestDevice_CompoWayRead(t *testing.T) {
	dev := New()
	dev.SetWord("1", "81", "0003", 45)

	reply, ok := dev.HandleRequest(compoWayRequest("1", "0101810003000001"))
	require.True(t, ok)

	want := compoWayReply("1", "0101", "0000", "002D")
	assert.Equal(t, want, reply)

	// Unseeded addresses report an address-range error.
	reply, _ = dev.HandleRequest(compoWayRequest("1", "0101810099000001"))
	assert.Equal(t, compoWayReply("1", "0101", "1103", ""), reply)
}

func TestDevice_CompoWayWrite(t *testing.T) {
	dev := New()

	reply, ok := dev.HandleRequest(compoWayRequest("1", "010281000300000100FF"))
	require.True(t, ok)
	assert.Equal(t, compoWayReply("1", "0102", "0000", ""), reply)

	word, present := dev.Word("1", "81", "0003")
	require.True(t, present)
	assert.Equal(t, uint16(0x00FF), word)
}

func TestDevice_CompoWayRunStop(t *testing.T) {
	dev := New()

	reply, _ := dev.HandleRequest(compoWayRequest("1", "30050100"))
	assert.Equal(t, compoWayReply("1", "3005", "0000", ""), reply)
	assert.True(t, dev.Running("1"))

	reply, _ = dev.HandleRequest(compoWayRequest("1", "30050101"))
	assert.Equal(t, compoWayReply("1", "3005", "0000", ""), reply)
	assert.False(t, dev.Running("1"))
}

func TestDevice_CompoWayBadBCC(t *testing.T) {
	dev := New()
	dev.SetWord("1", "81", "0003", 45)

	frame := compoWayRequest("1", "0101810003000001")
	frame[len(frame)-1] ^= 0xFF

	reply, _ := dev.HandleRequest(frame)
	assert.Equal(t, compoWayShort("1", "13"), reply)
}

func TestDevice_CompoWayUnsupportedCommand(t *testing.T) {
	dev := New()

	reply, _ := dev.HandleRequest(compoWayRequest("1", "99990000"))
	assert.Equal(t, compoWayReply("1", "9999", "0401", ""), reply)
}

func TestTransport_Lifecycle(t *testing.T) {
	dev := New()
	dev.SetRegister("CPU8000", 16, "Power", "ON")

	tr := NewTransport(dev)
	ctx := context.Background()

	require.ErrorIs(t, tr.Send(ctx, []byte("/CPU8000/16/Power\r")), transport.ErrNotConnected)

	require.NoError(t, tr.Connect(ctx))
	assert.True(t, tr.Connected())

	require.NoError(t, tr.Send(ctx, []byte("/CPU8000/16/Power\r")))
	assert.Equal(t, int64(1), tr.Sends.Load())

	reply, err := tr.ReceiveUntil(ctx, 0x03)
	require.NoError(t, err)
	assert.Equal(t, []byte("ON\x03"), reply)

	require.NoError(t, tr.Disconnect())
	assert.False(t, tr.Connected())
}

func TestTransport_DroppedReplyTimesOut(t *testing.T) {
	dev := New()
	dev.SetRegister("CPU8000", 16, "Power", "ON")
	dev.DropReplies(1)

	tr := NewTransport(dev)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	require.NoError(t, tr.Send(ctx, []byte("/CPU8000/16/Power\r")))

	_, err := tr.ReceiveUntil(ctx, 0x03)
	require.ErrorIs(t, err, transport.ErrTimeout)
}

func TestTransport_ReceiveBytes(t *testing.T) {
	dev := New()
	dev.SetWord("1", "81", "0003", 45)

	tr := NewTransport(dev)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	require.NoError(t, tr.Send(ctx, compoWayRequest("1", "0101810003000001")))

	// Everything through the ETX, then the single trailing BCC byte.
	head, err := tr.ReceiveUntil(ctx, 0x03)
	require.NoError(t, err)

	bcc, err := tr.ReceiveBytes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, xorOf(head[1:]), bcc[0])

	_, err = tr.ReceiveBytes(ctx, 1)
	require.ErrorIs(t, err, transport.ErrTimeout)
}
