package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the particle pool at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	GridDim   int     `json:"grid_dim"`
	SlabCount int     `json:"slab_count"`
	WorldSize float32 `json:"world_size"`
	InitY     float32 `json:"init_y"`

	Tick        uint64 `json:"tick"`
	NextSlab    int    `json:"next_slab"`
	FrameCursor int    `json:"frame_cursor"`

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's state.
type ParticleState struct {
	Slab     int        `json:"slab"`
	Visible  bool       `json:"visible"`
	Value    float32    `json:"value"`
	Position [3]float32 `json:"position"`
	Rotation [3]float32 `json:"rotation"`
	Color    [4]float32 `json:"rgba"`
}

// NewSnapshot captures the pool. Hidden particles are included so that the
// particle index matches the pool index.
func NewSnapshot(pool *systems.Pool, tick uint64, frameCursor int, seed int64) *Snapshot {
	layout := pool.Layout()
	s := &Snapshot{
		Version:     SnapshotVersion,
		RNGSeed:     seed,
		GridDim:     pool.GridDim(),
		SlabCount:   pool.SlabCount(),
		WorldSize:   layout.WorldSize,
		InitY:       layout.InitY,
		Tick:        tick,
		NextSlab:    pool.NextSlab(),
		FrameCursor: frameCursor,
	}

	ps := pool.Particles()
	s.Particles = make([]ParticleState, len(ps))
	for i := range ps {
		s.Particles[i] = particleState(&ps[i])
	}
	return s
}

func particleState(p *components.Particle) ParticleState {
	return ParticleState{
		Slab:     p.Slab,
		Visible:  p.Visible,
		Value:    p.Value,
		Position: [3]float32{p.Position.X, p.Position.Y, p.Position.Z},
		Rotation: [3]float32{p.Rotation.X, p.Rotation.Y, p.Rotation.Z},
		Color:    [4]float32{p.Color.R, p.Color.G, p.Color.B, p.Color.A},
	}
}

// Particle converts the state back to a particle.
func (ps ParticleState) Particle() components.Particle {
	return components.Particle{
		Position: components.Vec3{X: ps.Position[0], Y: ps.Position[1], Z: ps.Position[2]},
		Rotation: components.Vec3{X: ps.Rotation[0], Y: ps.Rotation[1], Z: ps.Rotation[2]},
		Color:    components.Color{R: ps.Color[0], G: ps.Color[1], B: ps.Color[2], A: ps.Color[3]},
		Visible:  ps.Visible,
		Value:    ps.Value,
		Slab:     ps.Slab,
	}
}

// VisibleCount returns the number of visible particles in the snapshot.
func (s *Snapshot) VisibleCount() int {
	n := 0
	for _, p := range s.Particles {
		if p.Visible {
			n++
		}
	}
	return n
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
