package gpio

import (
	"sync"
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
)

// Op is one recorded level change on a button line.
type Op struct {
	Line     logic.Line
	Asserted bool // true = driven low, false = released
	At       time.Time
}

// FakeBoard is a test double that records line activity and lets tests inject
// indicator edges.
type FakeBoard struct {
	mu sync.Mutex

	// Ops contains every Assert and Release, in call order.
	Ops []Op

	// Busy contains every SetBusy value, in call order.
	Busy []bool

	// AssertError, if set, will be returned by Assert.
	AssertError error

	// Closed tracks if Close was called.
	Closed bool

	// Now timestamps recorded ops. Defaults to time.Now.
	Now func() time.Time

	onEdge EdgeHandler
}

// NewFakeBoard creates a FakeBoard that delivers fired edges to onEdge.
func NewFakeBoard(onEdge EdgeHandler) *FakeBoard {
	return &FakeBoard{onEdge: onEdge, Now: time.Now}
}

// Assert records the line being driven low.
func (f *FakeBoard) Assert(line logic.Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AssertError != nil {
		return f.AssertError
	}
	f.Ops = append(f.Ops, Op{Line: line, Asserted: true, At: f.Now()})
	return nil
}

// Release records the line being released.
func (f *FakeBoard) Release(line logic.Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, Op{Line: line, At: f.Now()})
	return nil
}

// SetBusy records the lamp state.
func (f *FakeBoard) SetBusy(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Busy = append(f.Busy, on)
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Fire delivers n falling edges on the indicator.
func (f *FakeBoard) Fire(ind logic.Indicator, n int) {
	for i := 0; i < n; i++ {
		if f.onEdge != nil {
			f.onEdge(ind)
		}
	}
}

// History returns a copy of the recorded ops.
func (f *FakeBoard) History() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.Ops...)
}

// Asserted reports whether any line is currently driven low.
func (f *FakeBoard) Asserted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	low := make(map[logic.Line]bool)
	for _, op := range f.Ops {
		low[op.Line] = op.Asserted
	}
	for _, v := range low {
		if v {
			return true
		}
	}
	return false
}

// Reset clears the recorded history.
func (f *FakeBoard) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = nil
	f.Busy = nil
	f.Closed = false
	f.AssertError = nil
}
