package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fitsfall/app"
	"github.com/pthm-cable/fitsfall/config"
	"github.com/pthm-cable/fitsfall/frames"
	"github.com/pthm-cable/fitsfall/telemetry"
)

// Fitness weights.
const (
	preemptWeight = 2.0 // Penalty per force-recycled particle per refreshed particle
	spreadWeight  = 0.5 // Penalty for occupancy varying between windows
	warmupWindows = 1   // Windows skipped while the first slabs fall into view
)

// FitnessEvaluator runs headless animations and scores how steadily they fill
// the field.
type FitnessEvaluator struct {
	params          *ParamVector
	maxTicks        uint64
	seeds           []int64
	baseConfig      *config.Config
	targetOccupancy float64

	mu          sync.Mutex
	lastQuality float64 // mean occupancy from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:          params,
		maxTicks:        maxTicks,
		seeds:           seeds,
		baseConfig:      baseCfg,
		targetOccupancy: target,
	}
}

// LastQuality returns the mean occupancy from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single run.
type runResult struct {
	windows  []telemetry.WindowStats
	gridArea int
	failed   bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.run(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalOccupancy float64
	for _, r := range results {
		f, occ := fe.computeFitness(r)
		totalFitness += f
		totalOccupancy += occ
	}

	n := float64(len(results))
	fe.mu.Lock()
	fe.lastQuality = totalOccupancy / n
	fe.mu.Unlock()

	return totalFitness / n
}

// copyConfig returns a copy of the base config. Config holds only values.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// run animates one noise-seeded source headless.
func (fe *FitnessEvaluator) run(base *config.Config, seed int64) runResult {
	cfg := *base
	cfg.Source.Noise.Seed = seed

	side := cfg.Grid.Dim
	if side == 0 {
		side = cfg.Source.Noise.Side
	}
	src := frames.NewNoiseSource(seed, side, cfg.Source.Noise.Scale, cfg.Source.Noise.Speed)

	var result runResult
	a, err := app.New(&cfg, app.Options{
		Seed:     seed,
		MaxTicks: fe.maxTicks,
		StatsCallback: func(s telemetry.WindowStats) {
			result.windows = append(result.windows, s)
		},
	}, src, nil, nil)
	if err != nil {
		return runResult{failed: true}
	}
	a.SetLogger(slog.New(slog.DiscardHandler))
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		return runResult{failed: true}
	}
	result.gridArea = a.Config().Derived.GridArea
	return result
}

// computeFitness scores a run: distance from the target occupancy, plus
// penalties for unsteady occupancy and for slabs recycled while visible.
func (fe *FitnessEvaluator) computeFitness(r runResult) (fitness, occupancy float64) {
	if r.failed || len(r.windows) <= warmupWindows {
		return math.Inf(1), 0
	}

	windows := r.windows[warmupWindows:]
	occ := make([]float64, len(windows))
	refreshes, preempted := 0, 0
	for i, w := range windows {
		occ[i] = w.Occupancy
		refreshes += w.Refreshes
		preempted += w.Preempted
	}
	mean, std := stat.MeanStdDev(occ, nil)
	if len(occ) < 2 {
		std = 0
	}

	var preemptRate float64
	if refreshes > 0 && r.gridArea > 0 {
		preemptRate = float64(preempted) / float64(refreshes*r.gridArea)
	}

	return math.Abs(mean-fe.targetOccupancy) + spreadWeight*std + preemptWeight*preemptRate, mean
}
