// Frame preview tool - inspect noise or FITS frames with sliders.
//
// Usage: go run ./cmd/framepreview [-fits cube.fits] [-side 48] [-frames 100]
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fitsfall/fits"
	"github.com/pthm-cable/fitsfall/frames"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// NoiseParams holds the tunable noise source settings.
type NoiseParams struct {
	Scale float32
	Speed float32
	Seed  int64
}

var defaultParams = NoiseParams{Scale: 0.08, Speed: 0.05, Seed: 42}

func main() {
	fitsPath := flag.String("fits", "", "FITS cube to preview (empty = noise source)")
	side := flag.Int("side", 48, "Noise frame side")
	frameCount := flag.Int("frames", 100, "Noise frames available to the frame slider and export")
	exportPath := flag.String("export", "noise.fits", "Output path for the Export button")
	flag.Parse()

	var cube *fits.Cube
	if *fitsPath != "" {
		c, err := fits.Open(*fitsPath)
		if err != nil {
			slog.Error("failed to open cube", "path", *fitsPath, "error", err)
			os.Exit(1)
		}
		cube = c
		*frameCount = c.Depth
	}

	width, height := *side, *side
	if cube != nil {
		width, height = cube.Width, cube.Height
	}

	rl.InitWindow(windowWidth, windowHeight, "Frame Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	img := rl.GenImageColor(width, height, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	params := defaultParams
	noise := frames.NewNoiseSource(params.Seed, *side, float64(params.Scale), float64(params.Speed))

	frameIndex := 0
	animating := false
	needsRegen := true
	status := ""
	var values []float64
	var extent frames.Extent

	for !rl.WindowShouldClose() {
		if animating {
			frameIndex = (frameIndex + 1) % *frameCount
			needsRegen = true
		}

		if needsRegen {
			var err error
			if cube != nil {
				values, err = cube.Frame(frameIndex)
			} else {
				values = noise.Frame(frameIndex)
			}
			if err != nil {
				status = err.Error()
			} else {
				extent = frames.ExtentOf(values)
				updateTexture(texture, values, extent)
			}
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(width), Height: float32(height)},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Min: %.4g  Max: %.4g  Mean: %.4g", extent.Min, extent.Max, mean(values, extent)), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Frame: %d / %d  (%dx%d)", frameIndex, *frameCount, width, height), 15, statsY+20, 16, rl.DarkGray)
		if extent.Degenerate() {
			rl.DrawText("Degenerate frame: every particle would be dark", 15, statsY+40, 16, rl.Maroon)
		}
		if status != "" {
			rl.DrawText(status, 15, statsY+60, 14, rl.Gray)
		}

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		title := "Noise Source"
		if cube != nil {
			title = "FITS Cube"
		}
		rl.DrawText(title, int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		rl.DrawText("Frame index", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newFrame := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", fmt.Sprintf("%d", *frameCount-1),
			float32(frameIndex), 0, float32(*frameCount-1),
		)
		if int(newFrame) != frameIndex {
			frameIndex = int(newFrame)
			needsRegen = true
		}
		panelY += 35

		if cube == nil {
			rl.DrawText("Scale (spatial frequency)", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newScale := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"0.01", "0.5",
				params.Scale, 0.01, 0.5,
			)
			rl.DrawText(fmt.Sprintf("%.3f", params.Scale), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if newScale != params.Scale {
				params.Scale = newScale
				noise.Scale = float64(newScale)
				needsRegen = true
			}
			panelY += 35

			rl.DrawText("Speed (noise time per frame)", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newSpeed := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"0", "0.5",
				params.Speed, 0, 0.5,
			)
			rl.DrawText(fmt.Sprintf("%.3f", params.Speed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if newSpeed != params.Speed {
				params.Speed = newSpeed
				noise.Speed = float64(newSpeed)
				needsRegen = true
			}
			panelY += 35

			rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newSeed := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"0", "99999",
				float32(params.Seed), 0, 99999,
			)
			rl.DrawText(fmt.Sprintf("%d", params.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if int64(newSeed) != params.Seed {
				params.Seed = int64(newSeed)
				noise = reseed(noise, params.Seed)
				needsRegen = true
			}
			panelY += 45
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "First Frame") {
			frameIndex = 0
			needsRegen = true
		}
		panelY += 45

		if cube == nil {
			if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
				params.Seed = int64(rl.GetRandomValue(0, 99999))
				noise = reseed(noise, params.Seed)
				needsRegen = true
			}
			if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Export FITS") {
				if err := export(*exportPath, noise, *frameCount); err != nil {
					status = err.Error()
				} else {
					status = fmt.Sprintf("wrote %d frames to %s", *frameCount, *exportPath)
				}
			}
			panelY += 55

			rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
			panelY += 25
			for _, line := range yamlLines(params, *side) {
				rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
				panelY += 16
			}

			rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
			if rl.IsKeyPressed(rl.KeyC) {
				text := ""
				for _, line := range yamlLines(params, *side) {
					text += line + "\n"
				}
				rl.SetClipboardText(text)
			}
		}

		rl.EndDrawing()
	}
}

func reseed(n *frames.NoiseSource, seed int64) *frames.NoiseSource {
	return frames.NewNoiseSource(seed, n.Side, n.Scale, n.Speed)
}

func yamlLines(p NoiseParams, side int) []string {
	return []string{
		"source:",
		"  kind: noise",
		"  noise:",
		fmt.Sprintf("    seed: %d", p.Seed),
		fmt.Sprintf("    side: %d", side),
		fmt.Sprintf("    scale: %.3f", p.Scale),
		fmt.Sprintf("    speed: %.3f", p.Speed),
	}
}

// export renders count noise frames into a float FITS cube.
func export(path string, n *frames.NoiseSource, count int) error {
	planes := make([][]float64, count)
	err := n.LoadFrames(context.Background(), count, func(i int, values []float64, _ frames.Extent) error {
		planes[i] = values
		return nil
	})
	if err != nil {
		return err
	}
	cube, err := fits.NewFloatCube(n.Side, n.Side, planes)
	if err != nil {
		return err
	}
	return fits.WriteFile(path, cube)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func mean(values []float64, e frames.Extent) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for _, v := range values {
		if v >= e.Min && v <= e.Max {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// updateTexture uploads a frame as grayscale, normalized the same way the
// animator shades particles.
func updateTexture(texture rl.Texture2D, values []float64, e frames.Extent) {
	pixels := make([]color.RGBA, len(values))
	for i, v := range values {
		g := uint8(e.Normalize(v)*255 + 0.5)
		pixels[i] = color.RGBA{R: g, G: g, B: g, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}
