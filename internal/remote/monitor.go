// Package remote runs commands against the ventilation remote: it presses the
// buttons, counts the indicator pulses that come back and classifies them.
package remote

import (
	"sync/atomic"

	"github.com/sweeney/vent-remote/internal/logic"
)

const faultShift = 32

// Monitor counts falling edges on the two indicator lines.
//
// Both counters live in one 64-bit word (positive in the low half, fault in the
// high half) so Reset and Counters are each a single atomic operation and can
// never observe a half-applied increment from the edge goroutine.
type Monitor struct {
	packed atomic.Uint64
}

// NewMonitor returns a monitor with both counters at zero.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe records one edge. Safe to call from any goroutine; it is the
// gpio.EdgeHandler of the board.
func (m *Monitor) Observe(ind logic.Indicator) {
	switch ind {
	case logic.IndicatorPositive:
		m.packed.Add(1)
	case logic.IndicatorFault:
		m.packed.Add(1 << faultShift)
	}
}

// Reset zeroes both counters.
func (m *Monitor) Reset() {
	m.packed.Store(0)
}

// Counters returns both counters as one consistent snapshot.
func (m *Monitor) Counters() logic.Counters {
	v := m.packed.Load()
	return logic.Counters{
		Positive: uint32(v),
		Fault:    uint32(v >> faultShift),
	}
}
