package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// AnalyserConfig configures the spectrum analyser.
type AnalyserConfig struct {
	FFTSize   int     // Window length, power of two
	Smoothing float64 // Time smoothing of bin magnitudes in [0, 1)
	MinDB     float64 // Level mapped to byte 0
	MaxDB     float64 // Level mapped to byte 255
	Scale     float64 // Output = average byte level * Scale
}

// DefaultAnalyserConfig matches a browser analyser node with fftSize 32 and
// smoothing 0.6, with the average byte level divided by 70.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:   32,
		Smoothing: 0.6,
		MinDB:     -100,
		MaxDB:     -30,
		Scale:     1.0 / 70,
	}
}

// Analyser keeps the most recent FFTSize samples and reports the average
// byte-scaled spectrum level. Write may be called from an audio callback
// while Sample runs on the render loop.
type Analyser struct {
	cfg AnalyserConfig

	mu     sync.Mutex
	ring   []float64
	head   int
	window []float64
	frame  []float64
	smooth []float64
}

// NewAnalyser creates an analyser. Invalid sizes fall back to 32.
func NewAnalyser(cfg AnalyserConfig) *Analyser {
	n := cfg.FFTSize
	if n < 2 || n&(n-1) != 0 {
		n = 32
		cfg.FFTSize = n
	}
	if cfg.MaxDB <= cfg.MinDB {
		cfg.MinDB, cfg.MaxDB = -100, -30
	}

	// Hann window
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}

	return &Analyser{
		cfg:    cfg,
		ring:   make([]float64, n),
		window: window,
		frame:  make([]float64, n),
		smooth: make([]float64, n/2),
	}
}

// Write appends samples to the analysis window.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.head] = float64(s)
		a.head = (a.head + 1) % len(a.ring)
	}
	a.mu.Unlock()
}

// Bytes computes the current spectrum as byte levels, one per bin below
// Nyquist, updating the smoothed magnitudes.
func (a *Analyser) Bytes(dst []uint8) []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.ring)
	for i := 0; i < n; i++ {
		a.frame[i] = a.ring[(a.head+i)%n] * a.window[i]
	}
	spectrum := fft.FFTReal(a.frame)

	span := a.cfg.MaxDB - a.cfg.MinDB
	for k := range a.smooth {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		a.smooth[k] = a.cfg.Smoothing*a.smooth[k] + (1-a.cfg.Smoothing)*mag

		db := math.Inf(-1)
		if a.smooth[k] > 0 {
			db = 20 * math.Log10(a.smooth[k])
		}
		level := math.Floor(255 / span * (db - a.cfg.MinDB))
		dst = append(dst, uint8(math.Max(0, math.Min(255, level))))
	}
	return dst
}

// Level returns the average byte level in [0, 255].
func (a *Analyser) Level() float64 {
	bins := a.Bytes(make([]uint8, 0, a.cfg.FFTSize/2))
	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	return sum / float64(len(bins))
}

// Sample returns Level scaled by the configured factor.
func (a *Analyser) Sample() float64 {
	return a.Level() * a.cfg.Scale
}

// FFTSize returns the analysis window length.
func (a *Analyser) FFTSize() int {
	return a.cfg.FFTSize
}
