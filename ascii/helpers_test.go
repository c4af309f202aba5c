package ascii

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optodyne/go-laser/transport"
)

// fakeTransport scripts replies per sent frame. A handler returning
// (nil, nil) drops the reply, surfacing ErrTimeout on the next receive.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	handler   func(frame []byte) ([]byte, error)
	sends     [][]byte
	pending   []byte
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFakeTransport(handler func(frame []byte) ([]byte, error)) *fakeTransport {
	return &fakeTransport{connected: true, handler: handler}
}

func (f *fakeTransport) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true

	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false

	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *fakeTransport) Send(_ context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return transport.ErrNotConnected
	}

	f.sends = append(f.sends, append([]byte(nil), frame...))

	reply, err := f.handler(frame)
	if err != nil {
		return err
	}
	f.pending = append(f.pending, reply...)

	return nil
}

func (f *fakeTransport) ReceiveUntil(_ context.Context, terminator byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return nil, transport.ErrNotConnected
	}

	idx := bytes.IndexByte(f.pending, terminator)
	if idx < 0 {
		f.pending = nil
		return nil, fmt.Errorf("%w: no reply", transport.ErrTimeout)
	}

	out := f.pending[:idx+1]
	f.pending = f.pending[idx+1:]

	return out, nil
}

func (f *fakeTransport) ReceiveBytes(_ context.Context, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return nil, transport.ErrNotConnected
	}

	if len(f.pending) < n {
		f.pending = nil
		return nil, fmt.Errorf("%w: short reply", transport.ErrTimeout)
	}

	out := f.pending[:n]
	f.pending = f.pending[n:]

	return out, nil
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sends)
}

func (f *fakeTransport) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	frames := make([]string, len(f.sends))
	for i, frame := range f.sends {
		frames[i] = string(frame)
	}

	return frames
}

// replyWith scripts a fixed successful reply for every request.
func replyWith(value string) func([]byte) ([]byte, error) {
	return func([]byte) ([]byte, error) {
		return []byte(value + "\x03"), nil
	}
}

// faultThenReply scripts n in-band fault replies before answering
// normally.
func faultThenReply(n int, value string) func([]byte) ([]byte, error) {
	remaining := n

	return func([]byte) ([]byte, error) {
		if remaining > 0 {
			remaining--
			return []byte("'''Error: (12) device busy\x03"), nil
		}

		return []byte(value + "\x03"), nil
	}
}

func newTestCommander(t *testing.T, ft *fakeTransport) *transport.Commander {
	t.Helper()

	commander, err := transport.NewCommander(ft)
	require.NoError(t, err)

	return commander
}
