package fits

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80

	// maxAxis bounds each NAXISn.
	maxAxis = 1 << 20
)

// layout is the shape of the primary HDU as its header declares it.
type layout struct {
	bitpix     int
	axes       []int
	headerSize int // block aligned
	dataSize   int // unpadded
}

// hduSize returns the block-aligned length of the primary HDU.
func (l layout) hduSize() int {
	return l.headerSize + padded(l.dataSize)
}

func padded(n int) int {
	if rem := n % blockSize; rem != 0 {
		return n + blockSize - rem
	}
	return n
}

// scanPrimary reads the structural keywords of the primary header in raw and
// checks that the declared data unit is present. It runs before any data is
// allocated.
func scanPrimary(raw []byte) (layout, error) {
	var l layout
	if len(raw) < blockSize || !bytes.HasPrefix(raw, []byte("SIMPLE  =")) {
		return l, ErrNotFITS
	}

	naxis := -1
	axes := make(map[int]int)
	for off := 0; off+cardSize <= len(raw); off += cardSize {
		card := string(raw[off : off+cardSize])
		key := strings.TrimSpace(card[:8])
		if key == "END" {
			l.headerSize = padded(off + cardSize)
			break
		}
		switch {
		case key == "BITPIX":
			l.bitpix, _ = cardInt(card)
		case key == "NAXIS":
			if n, err := cardInt(card); err == nil {
				naxis = n
			}
		case strings.HasPrefix(key, "NAXIS"):
			i, err := strconv.Atoi(key[len("NAXIS"):])
			if err != nil {
				continue
			}
			if n, err := cardInt(card); err == nil {
				axes[i] = n
			}
		}
	}
	if l.headerSize == 0 {
		return l, fmt.Errorf("%w: header has no END card", ErrTruncated)
	}

	bpv := bytesPerValue(l.bitpix)
	if bpv == 0 {
		return l, fmt.Errorf("%w: %d", ErrUnsupportedBitpix, l.bitpix)
	}
	if naxis != 2 && naxis != 3 {
		return l, fmt.Errorf("%w: %d", ErrUnsupportedAxes, naxis)
	}

	size := bpv
	for i := 1; i <= naxis; i++ {
		n, ok := axes[i]
		if !ok || n <= 0 || n > maxAxis {
			return l, fmt.Errorf("%w: NAXIS%d = %d", ErrUnsupportedAxes, i, n)
		}
		if size > math.MaxInt/n {
			return l, fmt.Errorf("%w: data size overflows", ErrUnsupportedAxes)
		}
		size *= n
		l.axes = append(l.axes, n)
	}
	l.dataSize = size

	avail := len(raw) - l.headerSize
	if size > avail || padded(size) > avail {
		return l, fmt.Errorf("%w: header declares %d data bytes, %d present", ErrTruncated, size, avail)
	}
	return l, nil
}

// cardInt parses the value field of a fixed-format integer card.
func cardInt(card string) (int, error) {
	if card[8:10] != "= " {
		return 0, errors.New("no value")
	}
	v := card[10:]
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func bytesPerValue(bitpix int) int {
	switch bitpix {
	case 8:
		return 1
	case 16:
		return 2
	case 32, -32:
		return 4
	case 64, -64:
		return 8
	}
	return 0
}
