package telemetry

import "testing"

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_VolumeSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 300), VolumeMean: 0.1, VolumeMax: 0.15, Occupancy: 0.5})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1500, VolumeMean: 0.2, VolumeMax: 0.6, Occupancy: 0.5})
	if !hasBookmark(bookmarks, BookmarkVolumeSpike) {
		t.Error("expected volume_spike bookmark")
	}
}

func TestBookmarkDetector_QuietSpikeIgnored(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 300)})
	}

	// Far above a zero mean, but still below the floor
	bookmarks := bd.Check(WindowStats{WindowEndTick: 1500, VolumeMax: 0.01})
	if hasBookmark(bookmarks, BookmarkVolumeSpike) {
		t.Error("did not expect a volume spike in near silence")
	}
}

func TestBookmarkDetector_OccupancyDrop(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 300), Occupancy: 0.6})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1500, Occupancy: 0.3})
	if !hasBookmark(bookmarks, BookmarkOccupancyDrop) {
		t.Error("expected occupancy_drop bookmark")
	}

	// A sustained low does not trigger again
	bookmarks = bd.Check(WindowStats{WindowEndTick: 1800, Occupancy: 0.3})
	if hasBookmark(bookmarks, BookmarkOccupancyDrop) {
		t.Error("occupancy_drop should not repeat while occupancy stays low")
	}
}

func TestBookmarkDetector_BadFrames(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Reported even without history
	bookmarks := bd.Check(WindowStats{WindowEndTick: 300, Malformed: 1})
	if !hasBookmark(bookmarks, BookmarkBadFrames) {
		t.Error("expected bad_frames bookmark")
	}

	bookmarks = bd.Check(WindowStats{WindowEndTick: 600})
	if hasBookmark(bookmarks, BookmarkBadFrames) {
		t.Error("clean window should not trigger bad_frames")
	}
}

func TestBookmarkDetector_PreemptStart(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{WindowEndTick: 300, Occupancy: 0.5})

	bookmarks := bd.Check(WindowStats{WindowEndTick: 600, Preempted: 48, Occupancy: 0.5})
	if !hasBookmark(bookmarks, BookmarkPreemptStart) {
		t.Error("expected preempt_start bookmark")
	}

	bookmarks = bd.Check(WindowStats{WindowEndTick: 900, Preempted: 48, Occupancy: 0.5})
	if hasBookmark(bookmarks, BookmarkPreemptStart) {
		t.Error("preempt_start should only fire on the first preempting window")
	}
}

func TestBookmarkDetector_Steady(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var fired int
	for i := 0; i < 8; i++ {
		occ := 0.5
		if i%2 == 1 {
			occ = 0.51
		}
		if hasBookmark(bd.Check(WindowStats{WindowEndTick: uint64(i * 300), Occupancy: occ}), BookmarkSteady) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("expected steady to fire once, got %d", fired)
	}

	// Breaking the streak re-arms the detector
	bd.Check(WindowStats{WindowEndTick: 3000, Occupancy: 0.1})
	fired = 0
	for i := 0; i < 6; i++ {
		if hasBookmark(bd.Check(WindowStats{WindowEndTick: uint64(3300 + i*300), Occupancy: 0.4}), BookmarkSteady) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("expected steady to fire again after a break, got %d", fired)
	}
}

func TestBookmarkDetector_MinHistory(t *testing.T) {
	bd := NewBookmarkDetector(2)
	if bd.historySize != steadyWindows {
		t.Errorf("expected history size %d, got %d", steadyWindows, bd.historySize)
	}
}
