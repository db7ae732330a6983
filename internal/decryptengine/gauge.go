package decryptengine

import "sync/atomic"

// memoryGauge is a soft backpressure signal tracking outstanding page
// buffer bytes handed from stage A to stage B. Unlike the original
// Rust MemoryMonitor (parallel_decrypt.rs), which increments on
// allocate but is never decremented, this gauge is wired symmetrically
// per spec.md §9's second Open Question: stage C's writer decrements it
// once a page's bytes are durably written (or placeholder-written on
// error), so sustained pressure reflects real outstanding work rather
// than monotonically climbing for the life of the process.
type memoryGauge struct {
	current atomic.Int64
	maxMB   int64
}

func newMemoryGauge(maxMB int) *memoryGauge {
	return &memoryGauge{maxMB: int64(maxMB)}
}

func (g *memoryGauge) add(n int) {
	g.current.Add(int64(n))
}

func (g *memoryGauge) release(n int) {
	g.current.Add(-int64(n))
}

// underPressure reports whether outstanding bytes exceed 80% of the
// configured cap, the same threshold as the original's
// is_memory_pressure.
func (g *memoryGauge) underPressure() bool {
	return g.current.Load() > g.maxMB*1024*1024*80/100
}

func (g *memoryGauge) usageMB() int64 {
	return g.current.Load() / (1024 * 1024)
}
