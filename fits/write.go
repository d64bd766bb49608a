package fits

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
)

// NewFloatCube builds a BITPIX -32 cube from planes of width*height values.
func NewFloatCube(width, height int, planes [][]float64) (*Cube, error) {
	n := width * height
	data := make(floatPixels[float32], 0, len(planes)*n)
	for i, p := range planes {
		if len(p) != n {
			return nil, fmt.Errorf("fits: plane %d has %d values, want %d", i, len(p), n)
		}
		for _, v := range p {
			data = append(data, float32(v))
		}
	}

	return &Cube{
		Header: fitsio.NewHeader(nil, fitsio.IMAGE_HDU, -32, []int{width, height, len(planes)}),
		Bitpix: -32,
		Width:  width,
		Height: height,
		Depth:  len(planes),
		BScale: 1,
		data:   data,
	}, nil
}

// structural reports keywords that describe the array itself. They are
// regenerated from the cube on write.
func structural(key string) bool {
	switch key {
	case "SIMPLE", "XTENSION", "BITPIX", "NAXIS", "EXTEND", "PCOUNT", "GCOUNT", "END":
		return true
	}
	return strings.HasPrefix(key, "NAXIS")
}

// Encode writes c as a single-HDU FITS file. The axes follow the cube, so a
// trimmed cube gets a matching NAXIS3.
func Encode(w io.Writer, c *Cube) error {
	axes := []int{c.Width, c.Height}
	if c.Depth > 1 || (c.Header != nil && len(c.Header.Axes()) == 3) {
		axes = append(axes, c.Depth)
	}

	img := fitsio.NewImage(c.Bitpix, axes)
	defer img.Close()

	if c.Header != nil {
		var cards []fitsio.Card
		for i := range c.Header.Keys() {
			card := c.Header.Card(i)
			if !structural(card.Name) {
				cards = append(cards, *card)
			}
		}
		if err := img.Header().Append(cards...); err != nil {
			return fmt.Errorf("copying header: %w", err)
		}
	}

	if err := c.data.write(img); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating fits stream: %w", err)
	}
	if err := f.Write(img); err != nil {
		f.Close()
		return fmt.Errorf("writing hdu: %w", err)
	}
	return f.Close()
}

// WriteFile encodes c to path.
func WriteFile(path string, c *Cube) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating fits file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, c); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing fits file: %w", err)
	}
	return f.Close()
}
