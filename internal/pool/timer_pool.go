// Package pool provides pooled time.Timer instances for the transport
// layer's guard-acquisition waits, which allocate timers at a high rate
// under telemetry polling load.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer set to fire after d, reusing a pooled timer
// when one is available. Return it with PutTimer when done.
func GetTimer(d time.Duration) *time.Timer {
	v := timerPool.Get()
	if v == nil {
		return time.NewTimer(d)
	}

	t := v.(*time.Timer)
	if t.Reset(d) {
		// The timer was still active; drain a pending fire so the caller
		// never observes a stale tick.
		select {
		case <-t.C:
		default:
		}
	}

	return t
}

// PutTimer stops t and returns it to the pool. The timer must not be
// touched after this call.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// Drain t.C if the tick was not consumed by the caller.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
