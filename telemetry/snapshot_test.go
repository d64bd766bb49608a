package telemetry

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm-cable/fitsfall/frames"
	"github.com/pthm-cable/fitsfall/systems"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	pool := systems.NewPool(2, 2, systems.Layout{WorldSize: 10, InitY: 5}, rand.New(rand.NewSource(3)))
	vals := []float64{0, 1, 2, 3}
	if _, err := pool.RefreshNextSlab(frames.NewFrame(0, vals, frames.ExtentOf(vals))); err != nil {
		t.Fatal(err)
	}

	snapshot := NewSnapshot(pool, 27, 1, 42)
	snapshot.Bookmark = &Bookmark{Type: BookmarkSteady, Tick: 27, Description: "Test bookmark"}

	if snapshot.VisibleCount() != 4 {
		t.Errorf("expected 4 visible particles, got %d", snapshot.VisibleCount())
	}
	if snapshot.NextSlab != pool.NextSlab() {
		t.Errorf("NextSlab = %d, want %d", snapshot.NextSlab, pool.NextSlab())
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if diff := cmp.Diff(snapshot, loaded); diff != "" {
		t.Errorf("loaded snapshot differs (-saved +loaded):\n%s", diff)
	}

	for i, ps := range loaded.Particles {
		if diff := cmp.Diff(*pool.Particle(i), ps.Particle()); diff != "" {
			t.Errorf("particle %d differs (-pool +snapshot):\n%s", i, diff)
		}
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkOccupancyDrop,
			Tick: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	expected := filepath.Join(tmpDir, "snapshot_5000_occupancy_drop.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	snapshot.Bookmark = nil
	path, err = SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	expected = filepath.Join(tmpDir, "snapshot_5000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotRejectsOtherVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
