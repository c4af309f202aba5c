package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleMockTransport() *MockTransport {
	mt := NewMockTransport()
	mt.On("Connected").Return(true).Maybe()

	return mt
}

func TestNewCommander(t *testing.T) {
	_, err := NewCommander(nil)
	require.Error(t, err)

	commander, err := NewCommander(newIdleMockTransport())
	require.NoError(t, err)
	assert.True(t, commander.Connected())

	_, err = NewCommander(newIdleMockTransport(), WithAcquireTimeout(0))
	require.Error(t, err)

	_, err = NewCommander(newIdleMockTransport(), WithCommanderLogger(nil))
	require.Error(t, err)
}

func TestCommander_Exclusive_Serializes(t *testing.T) {
	commander, err := NewCommander(newIdleMockTransport())
	require.NoError(t, err)

	const workers = 8

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := commander.Exclusive(context.Background(), func(Exchange) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()

				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one exchange may hold the guard")
}

func TestCommander_Exclusive_ReleasedOnError(t *testing.T) {
	commander, err := NewCommander(newIdleMockTransport())
	require.NoError(t, err)

	wantErr := errors.New("exchange failed")

	err = commander.Exclusive(context.Background(), func(Exchange) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// The guard must be free again.
	err = commander.Exclusive(context.Background(), func(Exchange) error {
		return nil
	})
	require.NoError(t, err)
}

func TestCommander_Exclusive_ContextCanceled(t *testing.T) {
	commander, err := NewCommander(newIdleMockTransport())
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = commander.Exclusive(context.Background(), func(Exchange) error {
			close(held)
			<-release

			return nil
		})
	}()

	<-held

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = commander.Exclusive(ctx, func(Exchange) error {
		t.Error("callback must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	close(release)
}

func TestCommander_Exclusive_AcquireTimeout(t *testing.T) {
	commander, err := NewCommander(newIdleMockTransport(),
		WithAcquireTimeout(20*time.Millisecond))
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = commander.Exclusive(context.Background(), func(Exchange) error {
			close(held)
			<-release

			return nil
		})
	}()

	<-held

	err = commander.Exclusive(context.Background(), func(Exchange) error {
		t.Error("callback must not run while the guard is held")
		return nil
	})
	require.ErrorIs(t, err, ErrBusy)

	close(release)
}

func TestCommander_Exclusive_PassesTransport(t *testing.T) {
	mt := newIdleMockTransport()
	commander, err := NewCommander(mt)
	require.NoError(t, err)

	err = commander.Exclusive(context.Background(), func(ex Exchange) error {
		assert.Same(t, mt, ex)
		return nil
	})
	require.NoError(t, err)

	assert.Same(t, mt, commander.Transport())
}
