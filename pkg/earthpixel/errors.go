package earthpixel

import "errors"

var (
	// ErrInvalidWidth is returned when a grid cannot be built from the requested width/unit.
	ErrInvalidWidth = errors.New("earthpixel: invalid width")

	// ErrInvalidLocation is returned for missing, non-finite or out of range coordinates.
	ErrInvalidLocation = errors.New("earthpixel: invalid location")

	// ErrMalformedKey is returned when a key is not "<hex>-<hex>-<hex>" or does not
	// address an existing cell.
	ErrMalformedKey = errors.New("earthpixel: malformed key")

	// ErrCoverTooLarge is returned when a bbox cover would exceed MaxCoverCells.
	ErrCoverTooLarge = errors.New("earthpixel: cover too large")
)
