package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// Sample is the cost of one measured section.
type Sample struct {
	// Label names the measured section.
	Label string

	// Elapsed is the wall time of the section.
	Elapsed time.Duration

	// HeapMB is the live heap at the end of the section.
	HeapMB float64

	// AllocatedMB is the heap allocated during the section, including garbage.
	AllocatedMB float64

	// GCCount is the number of collections that ran during the section.
	GCCount uint32

	// MaxPauseUs is the longest collection pause during the section.
	MaxPauseUs uint64

	// SysMB is the memory obtained from the OS at the end of the section.
	SysMB float64
}

// Profiler measures the time and memory cost of load attempts.
// Every finished measurement is logged.
type Profiler struct {
	mu      sync.Mutex
	samples []Sample
	quiet   bool
}

// NewProfiler creates a new Profiler.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{}
}

// SetQuiet disables logging of finished measurements.
//
// Parameters:
//   - quiet: true to stop logging
func (p *Profiler) SetQuiet(quiet bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quiet = quiet
}

// Measure starts measuring a section. The returned function ends the measurement, records the
// sample and returns it; it must be called exactly once.
//
// Parameters:
//   - label: the section name
//
// Returns:
//   - func() Sample: ends the measurement
func (p *Profiler) Measure(label string) func() Sample {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	return func() Sample {
		elapsed := time.Since(start)
		var after runtime.MemStats
		runtime.ReadMemStats(&after)

		s := Sample{
			Label:       label,
			Elapsed:     elapsed,
			HeapMB:      float64(after.Alloc) / 1024 / 1024,
			AllocatedMB: float64(after.TotalAlloc-before.TotalAlloc) / 1024 / 1024,
			GCCount:     after.NumGC - before.NumGC,
			SysMB:       float64(after.Sys) / 1024 / 1024,
		}

		// PauseNs is a circular buffer of the last 256 pauses
		startIdx := before.NumGC
		if after.NumGC-startIdx > 256 {
			startIdx = after.NumGC - 256
		}
		for i := startIdx; i < after.NumGC; i++ {
			if pause := after.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}

		p.mu.Lock()
		p.samples = append(p.samples, s)
		quiet := p.quiet
		p.mu.Unlock()

		if !quiet {
			log.Printf("[Profiler] %s: %s | Heap: %.2f MB | Allocated: %.2f MB | GC: %d (max: %d µs) | Sys: %.2f MB",
				s.Label, s.Elapsed, s.HeapMB, s.AllocatedMB, s.GCCount, s.MaxPauseUs, s.SysMB)
		}
		return s
	}
}

// Samples returns every recorded sample in completion order.
//
// Returns:
//   - []Sample: a copy of the samples
func (p *Profiler) Samples() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sample(nil), p.samples...)
}
