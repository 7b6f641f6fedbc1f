package earthpixel

import (
	"fmt"
	"sort"
)

// MaxCoverCells caps the number of keys Cover will enumerate.
const MaxCoverCells = 100_000

// Cover returns the sorted keys of every cell intersecting the bbox
// [south,north]x[west,east]. Boxes crossing the antimeridian must be split by
// the caller.
func (g *Grid) Cover(south, west, north, east float64) ([]string, error) {
	sw := Location{Latitude: south, Longitude: west}
	ne := Location{Latitude: north, Longitude: east}
	if err := sw.Validate(); err != nil {
		return nil, fmt.Errorf("cover south-west corner: %w", err)
	}
	if err := ne.Validate(); err != nil {
		return nil, fmt.Errorf("cover north-east corner: %w", err)
	}
	if north < south || east < west {
		return nil, fmt.Errorf("cover bbox must satisfy south<=north and west<=east: %w", ErrInvalidLocation)
	}

	lo := latBand(g.divisions, south)
	hi := latBand(g.divisions, north)

	var out []string
	for lat := lo; lat <= hi; lat++ {
		n := lonDivisions(g.divisions, lat)
		w, e := lonBand(n, west), lonBand(n, east)
		if len(out)+(e-w+1) > MaxCoverCells {
			return nil, fmt.Errorf("bbox needs more than %d cells: %w", MaxCoverCells, ErrCoverTooLarge)
		}
		for lon := w; lon <= e; lon++ {
			out = append(out, EncodeKey(g.divisions, lat, lon))
		}
	}
	sort.Strings(out)
	return out, nil
}
