package systems

import "github.com/pthm-cable/fitsfall/components"

// Phase is the lifecycle state of a particle. It is derived from the particle's
// height and visibility, never stored.
type Phase uint8

const (
	PhaseHidden Phase = iota
	PhaseFalling
	PhaseFadingOut
	PhaseRecycle
)

func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseFalling:
		return "falling"
	case PhaseFadingOut:
		return "fading_out"
	case PhaseRecycle:
		return "recycle"
	}
	return "unknown"
}

// PhaseOf derives the phase of pt from the motion floors.
func (m Motion) PhaseOf(pt *components.Particle) Phase {
	switch {
	case pt.Position.Y < m.RecycleFloor:
		return PhaseRecycle
	case !pt.Visible:
		return PhaseHidden
	case pt.Position.Y < m.FadeFloor:
		return PhaseFadingOut
	default:
		return PhaseFalling
	}
}
