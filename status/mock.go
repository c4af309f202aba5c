package status

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSink is a testify mock implementing Sink.
type MockSink struct {
	mock.Mock
}

var _ Sink = (*MockSink)(nil)

// NewMockSink creates a new MockSink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockSink) Close() {
	m.Called()
}
