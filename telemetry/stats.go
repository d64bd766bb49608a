package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Frame consumption during window
	Refreshes  int `csv:"refreshes"`
	Preempted  int `csv:"preempted"` // Particles force-recycled before fading out
	Malformed  int `csv:"malformed"`
	Degenerate int `csv:"degenerate"`

	// Particle state at window end
	Visible   int     `csv:"visible"`
	Occupancy float64 `csv:"occupancy"` // Visible / capacity

	// Alpha distribution of visible particles at window end
	AlphaMean float64 `csv:"alpha_mean"`
	AlphaStd  float64 `csv:"alpha_std"`
	AlphaP10  float64 `csv:"alpha_p10"`
	AlphaP50  float64 `csv:"alpha_p50"`
	AlphaP90  float64 `csv:"alpha_p90"`

	// Audio volume over the window
	VolumeMean float64 `csv:"volume_mean"`
	VolumeMax  float64 `csv:"volume_max"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeDistribution returns mean, standard deviation and empirical
// percentiles of values. values is sorted in place.
func ComputeDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.10, stat.Empirical, values, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, values, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, values, nil),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("refreshes", s.Refreshes),
		slog.Int("preempted", s.Preempted),
		slog.Int("malformed", s.Malformed),
		slog.Int("degenerate", s.Degenerate),
		slog.Int("visible", s.Visible),
		slog.Float64("occupancy", s.Occupancy),
		slog.Float64("alpha_mean", s.AlphaMean),
		slog.Float64("alpha_p50", s.AlphaP50),
		slog.Float64("volume_mean", s.VolumeMean),
		slog.Float64("volume_max", s.VolumeMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"refreshes", s.Refreshes,
		"preempted", s.Preempted,
		"malformed", s.Malformed,
		"degenerate", s.Degenerate,
		"visible", s.Visible,
		"occupancy", s.Occupancy,
		"alpha_mean", s.AlphaMean,
		"alpha_std", s.AlphaStd,
		"alpha_p10", s.AlphaP10,
		"alpha_p50", s.AlphaP50,
		"alpha_p90", s.AlphaP90,
		"volume_mean", s.VolumeMean,
		"volume_max", s.VolumeMax,
	)
}
