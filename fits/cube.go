package fits

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/astrogo/fitsio"
)

// Cube is a decoded primary HDU. Plane i of the cube is frame i; a 2-D image
// is a cube of depth 1.
type Cube struct {
	Header *fitsio.Header
	Bitpix int
	Width  int // NAXIS1, fastest varying
	Height int // NAXIS2
	Depth  int // NAXIS3, or 1
	BScale float64
	BZero  float64

	blank    int64
	hasBlank bool
	data     pixels
}

// Open reads the primary HDU of the file at path.
func Open(path string) (*Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fits file: %w", err)
	}
	defer f.Close()

	c, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return c, nil
}

// Decode reads a primary header and its data unit from r.
func Decode(r io.Reader) (*Cube, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading fits data: %w", err)
	}
	l, err := scanPrimary(raw)
	if err != nil {
		return nil, err
	}

	f, err := fitsio.Open(bytes.NewReader(raw[:l.hduSize()]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFITS, err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, ErrNotFITS
	}
	hdr := img.Header()

	c := &Cube{
		Header: hdr,
		Bitpix: hdr.Bitpix(),
		Width:  l.axes[0],
		Height: l.axes[1],
		Depth:  1,
		BScale: 1,
	}
	if len(l.axes) == 3 {
		c.Depth = l.axes[2]
	}
	if v, ok := cardFloat(hdr, "BSCALE"); ok {
		c.BScale = v
	}
	if v, ok := cardFloat(hdr, "BZERO"); ok {
		c.BZero = v
	}
	if v, ok := cardFloat(hdr, "BLANK"); ok && c.Bitpix > 0 {
		c.blank, c.hasBlank = int64(v), true
	}

	c.data, err = readPixels(img, c.Bitpix, c.Width*c.Height*c.Depth)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return c, nil
}

// cardFloat returns a numeric card value.
func cardFloat(h *fitsio.Header, key string) (float64, bool) {
	card := h.Get(key)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// FrameSize returns the number of values in one plane.
func (c *Cube) FrameSize() int {
	return c.Width * c.Height
}

// Frame decodes plane i into physical values (BZERO + BSCALE * raw).
// Integer BLANK values and float NaNs decode to NaN.
func (c *Cube) Frame(i int) ([]float64, error) {
	if i < 0 || i >= c.Depth {
		return nil, fmt.Errorf("fits: frame %d not in [0, %d)", i, c.Depth)
	}

	n := c.FrameSize()
	if c.data == nil || (i+1)*n > c.data.Len() {
		held := 0
		if c.data != nil {
			held = c.data.Len()
		}
		return nil, fmt.Errorf("%w: plane %d needs %d values, cube holds %d", ErrTruncated, i, (i+1)*n, held)
	}

	out := make([]float64, n)
	c.data.physical(c, out, i*n)
	return out, nil
}

// Trim returns a cube holding the first n planes. The data is shared.
func (c *Cube) Trim(n int) *Cube {
	if n > c.Depth {
		n = c.Depth
	}
	if n < 1 {
		n = 1
	}
	out := *c
	out.Depth = n
	out.data = c.data.head(n * c.FrameSize())
	return &out
}

type integer interface {
	~uint8 | ~int16 | ~int32 | ~int64
}

type float interface {
	~float32 | ~float64
}

// pixels is the primary array in its stored type.
type pixels interface {
	Len() int
	head(n int) pixels
	physical(c *Cube, dst []float64, lo int)
	write(img fitsio.Image) error
}

type intPixels[T integer] []T

func (p intPixels[T]) Len() int { return len(p) }

func (p intPixels[T]) head(n int) pixels { return p[:n] }

func (p intPixels[T]) physical(c *Cube, dst []float64, lo int) {
	for k, v := range p[lo : lo+len(dst)] {
		if c.hasBlank && int64(v) == c.blank {
			dst[k] = math.NaN()
			continue
		}
		dst[k] = c.BZero + c.BScale*float64(v)
	}
}

func (p intPixels[T]) write(img fitsio.Image) error {
	data := []T(p)
	return img.Write(&data)
}

type floatPixels[T float] []T

func (p floatPixels[T]) Len() int { return len(p) }

func (p floatPixels[T]) head(n int) pixels { return p[:n] }

func (p floatPixels[T]) physical(c *Cube, dst []float64, lo int) {
	for k, v := range p[lo : lo+len(dst)] {
		dst[k] = c.BZero + c.BScale*float64(v)
	}
}

func (p floatPixels[T]) write(img fitsio.Image) error {
	data := []T(p)
	return img.Write(&data)
}

// readPixels reads n values of the image in the type BITPIX names.
func readPixels(img fitsio.Image, bitpix, n int) (pixels, error) {
	switch bitpix {
	case 8:
		return readInts[uint8](img, n)
	case 16:
		return readInts[int16](img, n)
	case 32:
		return readInts[int32](img, n)
	case 64:
		return readInts[int64](img, n)
	case -32:
		return readFloats[float32](img, n)
	case -64:
		return readFloats[float64](img, n)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitpix, bitpix)
}

func readInts[T integer](img fitsio.Image, n int) (pixels, error) {
	data := make([]T, n)
	if err := img.Read(&data); err != nil {
		return nil, err
	}
	return intPixels[T](data), nil
}

func readFloats[T float](img fitsio.Image, n int) (pixels, error) {
	data := make([]T, n)
	if err := img.Read(&data); err != nil {
		return nil, err
	}
	return floatPixels[T](data), nil
}
