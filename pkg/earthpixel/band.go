package earthpixel

import "math"

// The helpers below are pure functions of (divisions, index). Key decoding
// relies on them reproducing the exact same values as a live grid.
//
// Indexing and extents use the unrounded step 180/divisions. The 8-decimal
// width is only reported (Debug, Cell.Widths); multiplying it back by the
// band count drifts away from 180 once divisions grows past ~10^5.

type band struct {
	index  int
	min    float64
	max    float64
	center float64
}

func latStep(divisions int) float64 {
	return 180 / float64(divisions)
}

func latBand(divisions int, latitude float64) int {
	return clamp(int(math.Floor((latitude+90)/latStep(divisions))), divisions-1)
}

// latExtent computes each edge from its own index so that north(i) and
// south(i+1) are the same float.
func latExtent(divisions, idx int) band {
	step := latStep(divisions)
	return band{
		index:  idx,
		min:    round(-90 + float64(idx)*step),
		max:    round(-90 + float64(idx+1)*step),
		center: round(-90 + (float64(idx)+0.5)*step),
	}
}

// lonDivisions is how many longitude bands the latitude band idx is split
// into. The count shrinks with cos(center latitude) so east-west cell width
// stays close to the latitude band width.
func lonDivisions(divisions, latIdx int) int {
	center := latExtent(divisions, latIdx).center
	n := int(math.Round(math.Cos(center*math.Pi/180) * 2 * float64(divisions)))
	if n < 1 {
		return 1
	}
	return n
}

func lonWidth(n int) float64 {
	return 360 / float64(n)
}

func lonBand(n int, longitude float64) int {
	return clamp(int(math.Floor((longitude+180)/lonWidth(n))), n-1)
}

func lonExtent(n, idx int) band {
	w := lonWidth(n)
	return band{
		index:  idx,
		min:    round(-180 + float64(idx)*w),
		max:    round(-180 + float64(idx+1)*w),
		center: round(-180 + (float64(idx)+0.5)*w),
	}
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
