package systems

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/frames"
)

// ErrMalformedFrame is returned when a frame's length does not match the grid area.
var ErrMalformedFrame = errors.New("systems: malformed frame")

// Layout places the grid in world space.
type Layout struct {
	WorldSize float32 // Edge length of one grid
	InitY     float32 // Spawn height
}

// RefreshResult describes one slab refresh.
type RefreshResult struct {
	Slab       int // Slab number that received the frame
	Frame      int // Frame index written
	Preempted  int // Particles still visible that were force-recycled
	Degenerate bool
}

// Pool is a fixed array of particles split into equal slabs, one frame per slab.
// Particle i of a slab maps to value i of a frame in row-major order.
type Pool struct {
	particles []components.Particle
	layout    Layout
	gridDim   int
	gridArea  int
	slabCount int
	nextSlab  int // particle offset of the next slab to refresh
}

// NewPool allocates slabCount grids of gridDim x gridDim particles.
// Every particle starts hidden at InitY with a random rotation.
func NewPool(slabCount, gridDim int, layout Layout, rng *rand.Rand) *Pool {
	if slabCount <= 0 || gridDim <= 0 {
		panic(fmt.Sprintf("systems: pool needs positive slabs and dim, got %d and %d", slabCount, gridDim))
	}

	area := gridDim * gridDim
	p := &Pool{
		particles: make([]components.Particle, area*slabCount),
		layout:    layout,
		gridDim:   gridDim,
		gridArea:  area,
		slabCount: slabCount,
	}

	dim := float32(gridDim)
	for i := range p.particles {
		cell := i % area
		row := float32(cell / gridDim)
		col := float32(cell % gridDim)
		p.particles[i] = components.Particle{
			Position: components.Vec3{
				X: (row/dim - 0.5) * layout.WorldSize,
				Y: layout.InitY,
				Z: (col/dim - 0.5) * layout.WorldSize,
			},
			Rotation: components.Vec3{
				X: rng.Float32() * 3.15,
				Y: rng.Float32() * 3.15,
				Z: rng.Float32() * 1.5,
			},
			Slab: i / area,
		}
	}
	return p
}

// RefreshNextSlab writes frame f into the slab at the cursor and advances the
// cursor by one slab. Particles of that slab still in flight are recycled
// first. A frame of the wrong length leaves the slab hidden, still advances
// the cursor, and returns ErrMalformedFrame.
func (p *Pool) RefreshNextSlab(f frames.Frame) (RefreshResult, error) {
	start := p.nextSlab
	slab := p.particles[start : start+p.gridArea]
	res := RefreshResult{Slab: start / p.gridArea, Frame: f.Index, Degenerate: f.Extent.Degenerate()}

	p.nextSlab = (p.nextSlab + p.gridArea) % len(p.particles)

	for i := range slab {
		if slab[i].Visible {
			res.Preempted++
		}
		p.recycle(&slab[i])
	}

	if len(f.Values) != p.gridArea {
		return res, fmt.Errorf("%w: frame %d has %d values, grid holds %d",
			ErrMalformedFrame, f.Index, len(f.Values), p.gridArea)
	}

	for i := range slab {
		shade := float32(f.Extent.Normalize(f.Values[i]))
		pt := &slab[i]
		pt.Visible = true
		pt.Value = shade
		pt.Color = components.Color{R: shade, G: shade, B: shade, A: 0}
	}
	return res, nil
}

// Recycle hides particle i and returns it to the spawn height. Idempotent.
func (p *Pool) Recycle(i int) {
	p.recycle(&p.particles[i])
}

func (p *Pool) recycle(pt *components.Particle) {
	pt.Visible = false
	pt.Position.Y = p.layout.InitY
}

// Particles returns the backing array. Callers outside the animator must
// treat it as read-only.
func (p *Pool) Particles() []components.Particle {
	return p.particles
}

// Particle returns a pointer to particle i.
func (p *Pool) Particle(i int) *components.Particle {
	return &p.particles[i]
}

// Slab returns the particles of slab k.
func (p *Pool) Slab(k int) []components.Particle {
	return p.particles[k*p.gridArea : (k+1)*p.gridArea]
}

// NextSlab returns the particle offset of the slab that receives the next frame.
// It is always a multiple of GridArea and below Capacity.
func (p *Pool) NextSlab() int {
	return p.nextSlab
}

// Capacity returns the total particle count.
func (p *Pool) Capacity() int {
	return len(p.particles)
}

// GridArea returns the particle count of one slab.
func (p *Pool) GridArea() int {
	return p.gridArea
}

// GridDim returns the grid edge length.
func (p *Pool) GridDim() int {
	return p.gridDim
}

// SlabCount returns the number of slabs.
func (p *Pool) SlabCount() int {
	return p.slabCount
}

// Layout returns the world layout.
func (p *Pool) Layout() Layout {
	return p.layout
}
