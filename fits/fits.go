// Package fits reads and writes the primary HDU of FITS image cubes on top of
// astrogo/fitsio.
//
// The primary array must have NAXIS 2 or 3. BSCALE, BZERO and integer BLANK
// are applied when a plane is converted to physical values. Extensions after
// the primary HDU are ignored.
package fits

import "errors"

var (
	// ErrNotFITS is returned when the input does not start with SIMPLE = T.
	ErrNotFITS = errors.New("fits: not a FITS file")
	// ErrUnsupportedBitpix is returned for BITPIX values outside the standard set.
	ErrUnsupportedBitpix = errors.New("fits: unsupported BITPIX")
	// ErrUnsupportedAxes is returned for arrays that are not 2-D images or 3-D
	// cubes, and for axes too large to address.
	ErrUnsupportedAxes = errors.New("fits: unsupported NAXIS")
	// ErrTruncated is returned when the data unit is shorter than the header declares.
	ErrTruncated = errors.New("fits: truncated data")
)
