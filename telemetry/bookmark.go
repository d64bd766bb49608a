package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkVolumeSpike   BookmarkType = "volume_spike"
	BookmarkOccupancyDrop BookmarkType = "occupancy_drop"
	BookmarkBadFrames     BookmarkType = "bad_frames"
	BookmarkPreemptStart  BookmarkType = "preempt_start"
	BookmarkSteady        BookmarkType = "steady"
)

// Bookmark marks a notable stats window.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        uint64       `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// Thresholds for bookmark detection.
const (
	spikeRatio      = 2.0  // VolumeMax over rolling mean volume
	spikeFloor      = 0.05 // Ignore spikes in near silence
	dropFraction    = 0.3  // Occupancy drop from recent peak
	steadyWindows   = 5
	steadyMaxSpread = 0.05 // Occupancy std over mean
)

// BookmarkDetector flags notable windows against a rolling history.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentOccPeak float64
	steady        bool // a steady bookmark was emitted and has not been broken
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < steadyWindows {
		historySize = steadyWindows
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkBadFrames(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkVolumeSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkOccupancyDrop(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkPreemptStart(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if b := bd.checkSteady(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.Occupancy > bd.recentOccPeak {
		bd.recentOccPeak = stats.Occupancy
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// lastN returns the n most recent windows, oldest first.
func (bd *BookmarkDetector) lastN(n int) []WindowStats {
	history := bd.getHistory()
	if len(history) < n {
		return nil
	}
	out := make([]WindowStats, 0, n)
	for i := n; i > 0; i-- {
		idx := (bd.historyIdx - i + bd.historySize) % bd.historySize
		out = append(out, bd.history[idx])
	}
	return out
}

func (bd *BookmarkDetector) checkBadFrames(stats WindowStats) *Bookmark {
	if stats.Malformed == 0 && stats.Degenerate == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkBadFrames,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d malformed and %d constant frames in window", stats.Malformed, stats.Degenerate),
	}
}

func (bd *BookmarkDetector) checkVolumeSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.VolumeMean
	}
	avg := sum / float64(len(history))

	if stats.VolumeMax < spikeFloor || stats.VolumeMax <= avg*spikeRatio {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkVolumeSpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Volume peaked at %.3f against a rolling mean of %.3f", stats.VolumeMax, avg),
	}
}

func (bd *BookmarkDetector) checkOccupancyDrop(stats WindowStats) *Bookmark {
	if bd.recentOccPeak <= 0 {
		return nil
	}
	if stats.Occupancy >= bd.recentOccPeak*(1-dropFraction) {
		return nil
	}

	peak := bd.recentOccPeak
	// Reset so a sustained low does not trigger every window
	bd.recentOccPeak = stats.Occupancy
	return &Bookmark{
		Type:        BookmarkOccupancyDrop,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Occupancy fell from %.2f to %.2f", peak, stats.Occupancy),
	}
}

func (bd *BookmarkDetector) checkPreemptStart(stats WindowStats) *Bookmark {
	if stats.Preempted == 0 {
		return nil
	}
	for _, h := range bd.getHistory() {
		if h.Preempted > 0 {
			return nil
		}
	}
	return &Bookmark{
		Type:        BookmarkPreemptStart,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d particles recycled while still in flight", stats.Preempted),
	}
}

func (bd *BookmarkDetector) checkSteady(stats WindowStats) *Bookmark {
	recent := bd.lastN(steadyWindows)
	if recent == nil {
		return nil
	}

	occ := make([]float64, len(recent))
	for i, w := range recent {
		occ[i] = w.Occupancy
	}
	mean, std := stat.MeanStdDev(occ, nil)

	isSteady := mean > 0 && std/mean < steadyMaxSpread
	if !isSteady {
		bd.steady = false
		return nil
	}
	if bd.steady {
		return nil
	}
	bd.steady = true
	return &Bookmark{
		Type:        BookmarkSteady,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Occupancy held at %.2f for %d windows", mean, steadyWindows),
	}
}
