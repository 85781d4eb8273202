package metrics

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

var collectorRunning atomic.Bool //nolint:gochecknoglobals // guards the single runtime collector

// StartRuntimeCollector samples memory, goroutine and GC statistics at the
// manager's refresh interval until ctx is done. Only one collector may run.
func StartRuntimeCollector(ctx context.Context) error {
	if !collectorRunning.CompareAndSwap(false, true) {
		return ErrCollectorRunning
	}
	go func() {
		defer collectorRunning.Store(false)
		ticker := time.NewTicker(globalManager.refreshInterval)
		defer ticker.Stop()

		var lastNumGC uint32
		for {
			lastNumGC = collectRuntime(lastNumGC)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// collectRuntime updates the system gauges and observes GC pauses that
// happened since lastNumGC. It returns the current GC count.
func collectRuntime(lastNumGC uint32) uint32 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())

	pending := ms.NumGC - lastNumGC
	if pending > uint32(len(ms.PauseNs)) {
		pending = uint32(len(ms.PauseNs))
	}
	for i := uint32(0); i < pending; i++ {
		idx := (ms.NumGC - i + uint32(len(ms.PauseNs)) - 1) % uint32(len(ms.PauseNs))
		RecordSystemGCPauseTime(float64(ms.PauseNs[idx]) / float64(time.Millisecond))
	}
	return ms.NumGC
}
