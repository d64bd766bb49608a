// Snapshot render tool - draws a saved pool snapshot to a PNG file.
//
// Usage: go run ./cmd/snaprender -snapshot snaps/snapshot_900_steady.json -out steady.png
package main

import (
	"flag"
	"fmt"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fitsfall/camera"
	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/renderer"
	"github.com/pthm-cable/fitsfall/telemetry"
)

func main() {
	snapPath := flag.String("snapshot", "", "Path to snapshot JSON")
	outPath := flag.String("out", "snapshot.png", "Output PNG path")
	width := flag.Int("width", 1024, "Render width")
	height := flag.Int("height", 768, "Render height")
	size := flag.Float64("size", 0.7, "Cube edge length")
	yaw := flag.Float64("yaw", 0, "Extra camera yaw in radians")
	pitch := flag.Float64("pitch", 0, "Extra camera pitch in radians")
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "-snapshot is required")
		os.Exit(2)
	}

	snap, err := telemetry.LoadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
		os.Exit(1)
	}

	particles := make([]components.Particle, len(snap.Particles))
	for i, ps := range snap.Particles {
		particles[i] = ps.Particle()
	}

	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*width), int32(*height), "Snapshot Render")
	defer rl.CloseWindow()

	orbit := camera.New(0, 10, -50)
	orbit.Orbit(float32(*yaw), float32(*pitch))
	cam := rl.NewCamera3D(
		rl.NewVector3(orbit.Position()),
		rl.NewVector3(0, 0, 0),
		rl.NewVector3(0, 1, 0),
		45,
		rl.CameraPerspective,
	)

	target := rl.LoadRenderTexture(int32(*width), int32(*height))
	defer rl.UnloadRenderTexture(target)

	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Black)
	rl.BeginMode3D(cam)
	renderer.DrawParticles(particles, float32(*size))
	rl.EndMode3D()
	rl.EndTextureMode()

	// Flip for the OpenGL origin
	img := rl.LoadImageFromTexture(target.Texture)
	rl.ImageFlipVertical(img)

	success := rl.ExportImage(*img, *outPath)
	rl.UnloadImage(img)

	if !success {
		fmt.Fprintf(os.Stderr, "Failed to export image\n")
		os.Exit(1)
	}
	fmt.Printf("Tick %d rendered to: %s (%dx%d, %d visible)\n",
		snap.Tick, *outPath, *width, *height, snap.VisibleCount())
}
