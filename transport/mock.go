package transport

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock implementing Transport, for unit tests
// that need to script or assert byte-level behavior.
type MockTransport struct {
	mock.Mock
}

var _ Transport = (*MockTransport)(nil)

// NewMockTransport creates a new MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransport) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTransport) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockTransport) Send(ctx context.Context, frame []byte) error {
	args := m.Called(ctx, frame)
	return args.Error(0)
}

func (m *MockTransport) ReceiveUntil(ctx context.Context, terminator byte) ([]byte, error) {
	args := m.Called(ctx, terminator)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockTransport) ReceiveBytes(ctx context.Context, n int) ([]byte, error) {
	args := m.Called(ctx, n)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}

	return nil, args.Error(1)
}
