// fitstrim writes the first N frames of a FITS cube to trim_<name>.
//
// Usage: go run ./cmd/fitstrim -n 100 cube.fits [more.fits ...]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/fitsfall/fits"
)

func main() {
	n := flag.Int("n", 100, "Number of frames to keep")
	outDir := flag.String("out", "", "Output directory (empty = next to the input)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: fitstrim [-n frames] [-out dir] file.fits ...")
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		out, err := trim(path, *outDir, *n)
		if err != nil {
			slog.Error("trim failed", "path", path, "error", err)
			failed = true
			continue
		}
		slog.Info("trimmed", "path", path, "out", out, "frames", *n)
	}
	if failed {
		os.Exit(1)
	}
}

// trim writes the first n planes of the cube at path and returns the output path.
func trim(path, outDir string, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("frame count must be positive, got %d", n)
	}
	cube, err := fits.Open(path)
	if err != nil {
		return "", err
	}
	if n > cube.Depth {
		return "", fmt.Errorf("cube has %d frames, asked for %d", cube.Depth, n)
	}

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	out := filepath.Join(dir, "trim_"+filepath.Base(path))
	if err := fits.WriteFile(out, cube.Trim(n)); err != nil {
		return "", err
	}
	return out, nil
}
