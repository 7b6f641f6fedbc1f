package earthpixel

import (
	"math"
	"testing"
)

func TestLatitudeBands_Contiguous(t *testing.T) {
	for _, d := range []int{2, 3, 7, 360, 1800, 35742} {
		first := latExtent(d, 0)
		if first.min != -90 {
			t.Fatalf("d=%d first band south=%v want -90", d, first.min)
		}
		for i := 0; i < d-1; i++ {
			a, b := latExtent(d, i), latExtent(d, i+1)
			if a.max != b.min {
				t.Fatalf("d=%d band %d north=%v != band %d south=%v", d, i, a.max, i+1, b.min)
			}
			if a.center <= a.min || a.center >= a.max {
				t.Fatalf("d=%d band %d center %v outside [%v,%v]", d, i, a.center, a.min, a.max)
			}
		}
		if last := latExtent(d, d-1); last.max != 90 {
			t.Fatalf("d=%d last band north=%v want 90", d, last.max)
		}
	}
}

func TestLatitudeBands_LargeDivisionsReachPoles(t *testing.T) {
	for _, d := range []int{400313, 2001571, 20015709, 200157150, MaxDivisions} {
		if first := latExtent(d, 0); first.min != -90 || first.max <= -90 {
			t.Fatalf("d=%d first band %+v", d, first)
		}
		last := latExtent(d, d-1)
		if last.max != 90 || last.center >= 90 || last.min >= 90 {
			t.Fatalf("d=%d last band %+v want north=90 and center below it", d, last)
		}
		if got := latBand(d, 90); got != d-1 {
			t.Fatalf("d=%d latBand(90)=%d want %d", d, got, d-1)
		}
		if got := latBand(d, last.center); got != d-1 {
			t.Fatalf("d=%d latBand(top center %v)=%d want %d", d, last.center, got, d-1)
		}
	}
}

func TestLonDivisions_CosineCorrection(t *testing.T) {
	const d = 360

	// equator band: 2*divisions
	if n := lonDivisions(d, 180); n != 720 {
		t.Fatalf("equator lonDivisions=%d want 720", n)
	}
	// polar bands shrink but never reach zero
	if n := lonDivisions(d, 359); n != 3 {
		t.Fatalf("north polar lonDivisions=%d want 3", n)
	}
	if n := lonDivisions(d, 0); n != 3 {
		t.Fatalf("south polar lonDivisions=%d want 3", n)
	}
	for _, dd := range []int{2, 3} {
		for i := 0; i < dd; i++ {
			if n := lonDivisions(dd, i); n < 1 {
				t.Fatalf("d=%d band %d lonDivisions=%d want >= 1", dd, i, n)
			}
		}
	}
	// symmetric about the equator and monotonic toward the poles
	prev := lonDivisions(d, 180)
	for i := 181; i < 360; i++ {
		n := lonDivisions(d, i)
		if m := lonDivisions(d, 359-i); m != n {
			t.Fatalf("band %d has %d lon divisions, mirror band %d has %d", i, n, 359-i, m)
		}
		if n > prev {
			t.Fatalf("band %d has more lon divisions (%d) than band %d (%d)", i, n, i-1, prev)
		}
		prev = n
	}
}

func TestLonBands_Contiguous(t *testing.T) {
	for _, n := range []int{1, 3, 507, 720} {
		if e := lonExtent(n, 0); e.min != -180 {
			t.Fatalf("n=%d first west=%v want -180", n, e.min)
		}
		if e := lonExtent(n, n-1); e.max != 180 {
			t.Fatalf("n=%d last east=%v want 180", n, e.max)
		}
		for i := 0; i < n-1; i++ {
			if a, b := lonExtent(n, i), lonExtent(n, i+1); a.max != b.min {
				t.Fatalf("n=%d band %d east=%v != band %d west=%v", n, i, a.max, i+1, b.min)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(-1, 5) != 0 || clamp(6, 5) != 5 || clamp(3, 5) != 3 {
		t.Fatalf("clamp misbehaves")
	}
}
