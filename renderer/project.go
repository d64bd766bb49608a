package renderer

import "github.com/pthm-cable/fitsfall/components"

// alphaRamp maps increasing opacity to denser glyphs.
var alphaRamp = []rune(" .:-=+*#%@")

// AlphaRune returns the glyph for opacity a in [0, 1].
func AlphaRune(a float32) rune {
	if a <= 0 {
		return alphaRamp[0]
	}
	i := int(a*float32(len(alphaRamp)-1) + 0.5)
	if i >= len(alphaRamp) {
		i = len(alphaRamp) - 1
	}
	if i < 1 {
		i = 1
	}
	return alphaRamp[i]
}

// Bounds is the world-space rectangle a side view covers. X runs across,
// Y runs up.
type Bounds struct {
	MinX, MaxX float32
	MinY, MaxY float32
}

// Cell is one character of a projected view.
type Cell struct {
	Alpha float32
	Shade float32
}

// SideView projects visible particles onto a cols x rows grid looking along
// the Z axis. Each cell keeps its most opaque particle. dst is reused when it
// has the right size.
func SideView(dst []Cell, ps []components.Particle, b Bounds, cols, rows int) []Cell {
	if cols <= 0 || rows <= 0 {
		return dst[:0]
	}
	if cap(dst) < cols*rows {
		dst = make([]Cell, cols*rows)
	}
	dst = dst[:cols*rows]
	for i := range dst {
		dst[i] = Cell{}
	}

	spanX := b.MaxX - b.MinX
	spanY := b.MaxY - b.MinY
	if spanX <= 0 || spanY <= 0 {
		return dst
	}

	for i := range ps {
		p := &ps[i]
		if !p.Visible || p.Color.A <= 0 {
			continue
		}
		col := int((p.Position.X - b.MinX) / spanX * float32(cols))
		row := int((b.MaxY - p.Position.Y) / spanY * float32(rows))
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		c := &dst[row*cols+col]
		if p.Color.A > c.Alpha {
			c.Alpha = p.Color.A
			c.Shade = p.Color.R
		}
	}
	return dst
}
