package profile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_FlushMergesIntoAccumulator(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(0, "window")
	acc.Register(1, "ttl")

	w := acc.NewWorker()
	for i := 0; i < 3; i++ {
		w.Stop(0, w.Start())
	}
	w.Stop(1, w.Start())

	assert.Equal(t, uint64(3), w.Pending(0))
	assert.Equal(t, uint64(0), acc.Snapshot()[0].Checks, "nothing visible before flush")

	w.Flush()
	assert.Equal(t, uint64(0), w.Pending(0))

	snap := acc.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "window", snap[0].Name)
	assert.Equal(t, uint64(3), snap[0].Checks)
	assert.Equal(t, "ttl", snap[1].Name)
	assert.Equal(t, uint64(1), snap[1].Checks)
}

func TestAccumulator_ConcurrentWorkers(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(0, "window")

	const workers, per = 8, 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := acc.NewWorker()
			for j := 0; j < per; j++ {
				w.Stop(0, w.Start())
				if j%100 == 0 {
					w.Flush()
				}
			}
			w.Flush()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*per), acc.Snapshot()[0].Checks)
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(0, "window")
	w := acc.NewWorker()
	w.Stop(0, w.Start())
	w.Flush()
	require.Equal(t, uint64(1), acc.Snapshot()[0].Checks)

	acc.Reset()
	assert.Equal(t, uint64(0), acc.Snapshot()[0].Checks)
	assert.Equal(t, int64(0), int64(acc.Snapshot()[0].Elapsed))
}

func TestAccumulator_ResetDiscardsUnflushedWorkerCounts(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(0, "window")
	acc.Register(1, "ttl")

	w := acc.NewWorker()
	for i := 0; i < 5; i++ {
		w.Stop(0, w.Start())
	}
	w.Stop(1, w.Start())
	require.Equal(t, uint64(5), w.Pending(0))

	acc.Reset()
	assert.Zero(t, w.Pending(0), "stale counts are not pending")

	w.Flush()
	assert.Equal(t, uint64(0), acc.Snapshot()[0].Checks)
	assert.Equal(t, uint64(0), acc.Snapshot()[1].Checks)

	w.Stop(0, w.Start())
	w.Flush()
	assert.Equal(t, uint64(1), acc.Snapshot()[0].Checks)
}

func TestAccumulator_ResetBetweenStops(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(0, "window")

	w := acc.NewWorker()
	w.Stop(0, w.Start())
	w.Stop(0, w.Start())
	acc.Reset()
	w.Stop(0, w.Start())

	assert.Equal(t, uint64(1), w.Pending(0))
	w.Flush()
	assert.Equal(t, uint64(1), acc.Snapshot()[0].Checks)
}

func TestAccumulator_SparseKinds(t *testing.T) {
	acc := NewAccumulator()
	acc.Register(2, "dsize")

	snap := acc.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Kind)
	assert.Equal(t, 3, acc.Kinds())
}

func TestWorker_NilIsNoop(t *testing.T) {
	var w *Worker
	w.Stop(0, w.Start())
	w.Flush()
	assert.Zero(t, w.Pending(0))
}

func TestStats_Average(t *testing.T) {
	assert.Zero(t, Stats{}.Average())
	assert.Equal(t, int64(5), int64(Stats{Checks: 2, Elapsed: 10}.Average()))
}
