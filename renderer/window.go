package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fitsfall/camera"
	"github.com/pthm-cable/fitsfall/components"
)

const rad2deg = 57.29578

// WindowConfig sizes the window and its cubes.
type WindowConfig struct {
	Width, Height int32
	TargetFPS     int32
	Title         string
	ParticleSize  float32
}

// Window draws each particle as a rotated cube in a raylib window.
type Window struct {
	cfg    WindowConfig
	orbit  *camera.Camera
	camera rl.Camera3D
	hud    *HUD
}

// NewWindow opens the window. It must be called from the main goroutine.
func NewWindow(cfg WindowConfig) *Window {
	rl.SetConfigFlags(rl.FlagMsaa4xHint)
	rl.InitWindow(cfg.Width, cfg.Height, cfg.Title)
	rl.SetTargetFPS(cfg.TargetFPS)

	orbit := camera.New(0, 10, -50)
	cam := rl.NewCamera3D(
		rl.NewVector3(orbit.Position()),
		rl.NewVector3(0, 0, 0),
		rl.NewVector3(0, 1, 0),
		45,
		rl.CameraPerspective,
	)

	return &Window{cfg: cfg, orbit: orbit, camera: cam, hud: NewHUD(cfg.Width, cfg.Height)}
}

// handleCameraInput orbits with the left mouse button or arrow keys and
// zooms with the wheel or +/-. Home resets the view.
func (w *Window) handleCameraInput() {
	const orbitSpeed = 0.005
	const keySpeed = 0.03

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		w.orbit.Orbit(-d.X*orbitSpeed, d.Y*orbitSpeed)
	}
	if rl.IsKeyDown(rl.KeyRight) {
		w.orbit.Orbit(keySpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		w.orbit.Orbit(-keySpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		w.orbit.Orbit(0, keySpeed)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		w.orbit.Orbit(0, -keySpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		w.orbit.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		w.orbit.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		w.orbit.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		w.orbit.Reset()
	}

	w.camera.Position = rl.NewVector3(w.orbit.Position())
}

// Draw renders one frame.
func (w *Window) Draw(v View) error {
	w.handleCameraInput()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	rl.BeginMode3D(w.camera)
	DrawParticles(v.Particles, w.cfg.ParticleSize)
	rl.EndMode3D()

	w.hud.Draw(v, rl.GetFPS())
	rl.EndDrawing()
	return nil
}

// DrawParticles draws each visible particle as a rotated cube. It must be
// called between rl.BeginMode3D and rl.EndMode3D.
func DrawParticles(ps []components.Particle, size float32) {
	for i := range ps {
		p := &ps[i]
		if !p.Visible || p.Color.A <= 0 {
			continue
		}
		rl.PushMatrix()
		rl.Translatef(p.Position.X, p.Position.Y, p.Position.Z)
		rl.Rotatef(p.Rotation.X*rad2deg, 1, 0, 0)
		rl.Rotatef(p.Rotation.Y*rad2deg, 0, 1, 0)
		rl.Rotatef(p.Rotation.Z*rad2deg, 0, 0, 1)
		rl.DrawCube(rl.NewVector3(0, 0, 0), size, size, size, toColor(p.Color.R, p.Color.G, p.Color.B, p.Color.A))
		rl.PopMatrix()
	}
}

// ShouldClose reports whether the window was closed.
func (w *Window) ShouldClose() bool {
	return rl.WindowShouldClose()
}

// Close closes the window.
func (w *Window) Close() error {
	rl.CloseWindow()
	return nil
}

func toColor(r, g, b, a float32) rl.Color {
	return rl.Color{R: unit8(r), G: unit8(g), B: unit8(b), A: unit8(a)}
}

// unit8 maps [0, 1] to a byte, clamping outside values.
func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
