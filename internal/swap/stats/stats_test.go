package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swapdb/swapcore/internal/swap/types"
)

func TestObserveBumpsCounters(t *testing.T) {
	s := New(4, 100, time.Millisecond)
	s.Observe(1, "k", types.IN, 2*time.Millisecond, 128, nil)

	c := s.Counters(types.IN)
	require.Equal(t, int64(1), c.Count.Load())
	require.Equal(t, int64(128), c.Memory.Load())
}

func TestObserveBelowThresholdNeverSampled(t *testing.T) {
	s := New(4, 100, time.Second)
	s.Observe(1, "k", types.IN, time.Millisecond, 0, nil)
	require.Empty(t, s.SlowLog())
}

func TestObserveSampleRateZeroNeverLogs(t *testing.T) {
	s := New(4, 0, time.Nanosecond)
	s.Observe(1, "k", types.IN, time.Millisecond, 0, nil)
	require.Empty(t, s.SlowLog())
}

func TestSlowLogRingWrapsAndPreservesOrder(t *testing.T) {
	s := New(2, 100, time.Nanosecond)
	s.Observe(1, "a", types.IN, time.Millisecond, 0, nil)
	s.Observe(2, "b", types.IN, time.Millisecond, 0, nil)
	s.Observe(3, "c", types.IN, time.Millisecond, 0, nil)

	log := s.SlowLog()
	require.Len(t, log, 2)
	require.Equal(t, "b", log[0].Identity)
	require.Equal(t, "c", log[1].Identity)
}

func TestBumpBatchIncrementsBatchCount(t *testing.T) {
	s := New(4, 0, time.Second)
	s.BumpBatch(types.OUT)
	require.Equal(t, int64(1), s.Counters(types.OUT).BatchCount.Load())
}
