package remote

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/vent-remote/internal/logic"
)

func TestMonitorCounts(t *testing.T) {
	m := NewMonitor()
	assert.Equal(t, logic.Counters{}, m.Counters())

	m.Observe(logic.IndicatorPositive)
	m.Observe(logic.IndicatorPositive)
	m.Observe(logic.IndicatorFault)
	m.Observe(logic.Indicator(0))

	assert.Equal(t, logic.Counters{Positive: 2, Fault: 1}, m.Counters())
}

func TestMonitorReset(t *testing.T) {
	m := NewMonitor()
	m.Observe(logic.IndicatorPositive)
	m.Observe(logic.IndicatorFault)

	m.Reset()
	assert.Equal(t, logic.Counters{}, m.Counters())

	m.Observe(logic.IndicatorFault)
	assert.Equal(t, logic.Counters{Fault: 1}, m.Counters())
}

func TestMonitorConcurrentEdges(t *testing.T) {
	m := NewMonitor()

	const workers, edges = 8, 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ind := logic.IndicatorPositive
			if i%2 == 1 {
				ind = logic.IndicatorFault
			}
			for j := 0; j < edges; j++ {
				m.Observe(ind)
				_ = m.Counters()
			}
		}(i)
	}
	wg.Wait()

	c := m.Counters()
	assert.Equal(t, uint32(workers/2*edges), c.Positive)
	assert.Equal(t, uint32(workers/2*edges), c.Fault)
}
