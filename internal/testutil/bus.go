package testutil

import (
	"testing"

	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// testBusRingSize and testBusWorkers keep async delivery deterministic
// and small for tests.
const (
	testBusRingSize = 32
	testBusWorkers  = 1
)

// NewBus creates an EventBus sized for test determinism and registers its
// Close with t.Cleanup.
func NewBus(t *testing.T) *runtime.EventBus {
	t.Helper()

	bus := runtime.NewEventBusSized(nil, testBusRingSize, testBusWorkers)
	t.Cleanup(bus.Close)

	return bus
}
