package telemetry

import (
	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/systems"
)

// Collector accumulates tick reports within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float64

	// Current window tracking
	windowStartTick uint64

	// Counters for current window
	refreshes  int
	preempted  int
	malformed  int
	degenerate int
	volumeSum  float64
	volumeMax  float64
	samples    int

	// Totals since start
	totalPreempted int

	alphas []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(1)
	if dt > 0 && windowDurationSec > dt {
		ticksPerWindow = uint64(windowDurationSec / dt)
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record accumulates one tick report.
func (c *Collector) Record(r systems.TickReport) {
	if r.Refreshed {
		c.refreshes++
	}
	c.preempted += r.Preempted
	c.totalPreempted += r.Preempted
	if r.Malformed {
		c.malformed++
	}
	if r.Degenerate {
		c.degenerate++
	}
	c.volumeSum += r.Volume
	c.volumeMax = max(c.volumeMax, r.Volume)
	c.samples++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the particles at window end and resets
// counters for the next window.
func (c *Collector) Flush(currentTick uint64, particles []components.Particle) WindowStats {
	c.alphas = systems.Alphas(c.alphas[:0], particles)
	dist := ComputeDistribution(c.alphas)

	var occupancy, volumeMean float64
	if len(particles) > 0 {
		occupancy = float64(len(c.alphas)) / float64(len(particles))
	}
	if c.samples > 0 {
		volumeMean = c.volumeSum / float64(c.samples)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Refreshes:  c.refreshes,
		Preempted:  c.preempted,
		Malformed:  c.malformed,
		Degenerate: c.degenerate,

		Visible:   len(c.alphas),
		Occupancy: occupancy,

		AlphaMean: dist.Mean,
		AlphaStd:  dist.Std,
		AlphaP10:  dist.P10,
		AlphaP50:  dist.P50,
		AlphaP90:  dist.P90,

		VolumeMean: volumeMean,
		VolumeMax:  c.volumeMax,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.refreshes = 0
	c.preempted = 0
	c.malformed = 0
	c.degenerate = 0
	c.volumeSum = 0
	c.volumeMax = 0
	c.samples = 0

	return stats
}

// TotalPreempted returns the particles force-recycled since start.
func (c *Collector) TotalPreempted() int {
	return c.totalPreempted
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
