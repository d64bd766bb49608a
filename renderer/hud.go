package renderer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const hudHeight = 24

// HUD draws a one-line status bar along the bottom of the window.
type HUD struct {
	bounds rl.Rectangle
}

// NewHUD creates a status bar for a window of the given size.
func NewHUD(width, height int32) *HUD {
	return &HUD{bounds: rl.Rectangle{
		X:      0,
		Y:      float32(height - hudHeight),
		Width:  float32(width),
		Height: hudHeight,
	}}
}

// Draw renders the status bar.
func (h *HUD) Draw(v View, fps int32) {
	gui.StatusBar(h.bounds, StatusText(v, fps))
}

// StatusText formats the status line.
func StatusText(v View, fps int32) string {
	frame := "-"
	if v.Frame >= 0 {
		frame = fmt.Sprintf("%d", v.Frame)
	}
	return fmt.Sprintf("FPS %d | tick %d | frame %s | visible %d | vol %.2f", fps, v.Tick, frame, v.Visible, v.Volume)
}
