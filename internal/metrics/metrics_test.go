package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersAreConcurrencySafe(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementCounter("requests")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1000), m.GetCounters()["requests"])
}

func TestTimerTracksMinMaxAverage(t *testing.T) {
	m := NewMetrics()

	m.RecordTimer("op", 10)
	m.RecordTimer("op", 30)
	m.RecordTimer("op", 20)

	timer := m.GetTimers()["op"]
	require.Equal(t, int64(3), timer.Count)
	require.Equal(t, int64(10), timer.MinTimeMs)
	require.Equal(t, int64(30), timer.MaxTimeMs)
	require.InDelta(t, 20.0, timer.AverageTimeMs, 0.001)
}

func TestHealthChecks(t *testing.T) {
	m := NewMetrics()

	m.SetHealth("database", true)
	m.SetHealth("cache", false)

	checks := m.GetHealthChecks()
	require.True(t, checks["database"])
	require.False(t, checks["cache"])
}
