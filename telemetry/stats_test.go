package telemetry

import (
	"math"
	"testing"
)

func TestComputeDistribution(t *testing.T) {
	values := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}
	d := ComputeDistribution(values)

	if math.Abs(d.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", d.Mean)
	}
	if math.Abs(d.P10-0.1) > 0.001 {
		t.Errorf("p10 = %v, want 0.1", d.P10)
	}
	if math.Abs(d.P50-0.5) > 0.001 {
		t.Errorf("p50 = %v, want 0.5", d.P50)
	}
	if math.Abs(d.P90-0.9) > 0.001 {
		t.Errorf("p90 = %v, want 0.9", d.P90)
	}
	if d.Std <= 0 {
		t.Errorf("std = %v, want positive", d.Std)
	}
}

func TestComputeDistributionEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty", nil, Distribution{}},
		{"single", []float64{0.4}, Distribution{Mean: 0.4, P10: 0.4, P50: 0.4, P90: 0.4}},
		{"constant", []float64{0.2, 0.2, 0.2}, Distribution{Mean: 0.2, P10: 0.2, P50: 0.2, P90: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDistribution(tt.values)
			if math.Abs(got.Mean-tt.want.Mean) > 1e-9 || math.Abs(got.Std-tt.want.Std) > 1e-9 ||
				got.P10 != tt.want.P10 || got.P50 != tt.want.P50 || got.P90 != tt.want.P90 {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
