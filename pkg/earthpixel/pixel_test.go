package earthpixel

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
)

func mustGrid(t *testing.T, width float64, unit Unit) *Grid {
	t.Helper()
	g, err := New(width, unit)
	if err != nil {
		t.Fatalf("New(%v,%s): %v", width, unit, err)
	}
	return g
}

func TestCenter_HalfDegree(t *testing.T) {
	g := mustGrid(t, 0.5, Degrees)
	got, err := g.Center(Location{Latitude: 0.3, Longitude: 34})
	if err != nil {
		t.Fatalf("Center: %v", err)
	}
	if want := (Location{Latitude: 0.25, Longitude: 34.25}); got != want {
		t.Fatalf("center=%+v want %+v", got, want)
	}
}

func TestKey_HalfDegree(t *testing.T) {
	g := mustGrid(t, 0.5, Degrees)
	got, err := g.Key(Location{Latitude: 0.3, Longitude: 0})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	// hex of 360, 180, 360
	if got != "168-b4-168" {
		t.Fatalf("key=%q want 168-b4-168", got)
	}
}

func TestGet_HalfDegree(t *testing.T) {
	g := mustGrid(t, 0.5, Degrees)
	got, err := g.Get(Location{Latitude: 0.3, Longitude: 23})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Pixel{Latitude: 0.25, Longitude: 23.25, Key: "168-b4-196"}
	if got != want {
		t.Fatalf("get=%+v want %+v", got, want)
	}
}

func TestLocate_InvalidLocations(t *testing.T) {
	g := mustGrid(t, 0.1, Degrees)
	bad := []Location{
		{Latitude: math.NaN(), Longitude: 2},
		{Latitude: 34, Longitude: math.NaN()},
		{Latitude: math.Inf(1), Longitude: 2},
		{Latitude: 91, Longitude: 2},
		{Latitude: 34, Longitude: 181},
		{Latitude: -91, Longitude: 2},
		{Latitude: 34, Longitude: -181},
	}
	for _, loc := range bad {
		if _, err := g.Locate(loc); !errors.Is(err, ErrInvalidLocation) {
			t.Fatalf("Locate(%+v) err=%v want ErrInvalidLocation", loc, err)
		}
		if _, err := g.Center(loc); !errors.Is(err, ErrInvalidLocation) {
			t.Fatalf("Center(%+v) err=%v want ErrInvalidLocation", loc, err)
		}
		if k, err := g.Key(loc); !errors.Is(err, ErrInvalidLocation) || k != "" {
			t.Fatalf("Key(%+v)=%q err=%v want ErrInvalidLocation", loc, k, err)
		}
		if p, err := g.Get(loc); !errors.Is(err, ErrInvalidLocation) || p != (Pixel{}) {
			t.Fatalf("Get(%+v)=%+v err=%v want ErrInvalidLocation", loc, p, err)
		}
	}
}

func TestLocate_PoleAndAntimeridianClamp(t *testing.T) {
	grids := []*Grid{mustGrid(t, 0.5, Degrees), mustGrid(t, 560, Meters), mustGrid(t, 60, Degrees)}
	for _, m := range []float64{100, 50, 10, 1, 0.1} {
		grids = append(grids, mustGrid(t, m, Meters))
	}
	for _, g := range grids {
		for _, lon := range []float64{-180, -12.5, 0, 97, 180} {
			idx, err := g.Locate(Location{Latitude: 90, Longitude: lon})
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if idx.Lat != g.Divisions()-1 {
				t.Fatalf("%v lat=90 lon=%v: latIndex=%d want %d", g, lon, idx.Lat, g.Divisions()-1)
			}
		}
		for _, lat := range []float64{-90, -45.3, 0, 0.3, 66.6, 90} {
			idx, err := g.Locate(Location{Latitude: lat, Longitude: 180})
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if idx.Lon != idx.LonDivisions-1 {
				t.Fatalf("%v lat=%v lon=180: lonIndex=%d want %d", g, lat, idx.Lon, idx.LonDivisions-1)
			}
		}
		idx, err := g.Locate(Location{Latitude: -90, Longitude: -180})
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		if idx.Lat != 0 || idx.Lon != 0 {
			t.Fatalf("%v south-west corner: %+v want zero indices", g, idx)
		}
	}
}

func TestRoundTrip_KeyExtract(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	grids := []*Grid{
		mustGrid(t, 0.5, Degrees),
		mustGrid(t, 7.3, Degrees),
		mustGrid(t, 560, Meters),
		mustGrid(t, 1000, Meters),
	}
	for _, g := range grids {
		for i := 0; i < 2000; i++ {
			loc := Location{Latitude: rnd.Float64()*180 - 90, Longitude: rnd.Float64()*360 - 180}
			p, err := g.Get(loc)
			if err != nil {
				t.Fatalf("Get(%+v): %v", loc, err)
			}
			c, err := Extract(p.Key)
			if err != nil {
				t.Fatalf("Extract(%q): %v", p.Key, err)
			}
			if c.Key != p.Key {
				t.Fatalf("extract key %q != %q", c.Key, p.Key)
			}
			if c.Center != (Location{Latitude: p.Latitude, Longitude: p.Longitude}) {
				t.Fatalf("extract center %+v != get center %+v", c.Center, p)
			}
			if !c.Contains(loc) {
				t.Fatalf("%+v not inside extracted bounds %+v", loc, c.Bounds)
			}
			live, err := g.Cell(loc)
			if err != nil || live != c {
				t.Fatalf("Cell(%+v)=%+v,%v want %+v", loc, live, err, c)
			}
		}
	}
}

func TestCellSelfConsistency_DenseSampling(t *testing.T) {
	g := mustGrid(t, 560, Meters)
	for _, seed := range []Location{{Latitude: 59.3293, Longitude: 18.0686}, {Latitude: -33.9, Longitude: 151.2}, {Latitude: 89.999, Longitude: 3}} {
		c, err := g.Cell(seed)
		if err != nil {
			t.Fatalf("Cell: %v", err)
		}
		latW := c.Bounds.North - c.Bounds.South
		lonW := c.Bounds.East - c.Bounds.West
		const steps = 20
		for i := 1; i < steps; i++ {
			for j := 1; j < steps; j++ {
				loc := Location{
					Latitude:  c.Bounds.South + latW*float64(i)/steps,
					Longitude: c.Bounds.West + lonW*float64(j)/steps,
				}
				p, err := g.Get(loc)
				if err != nil {
					t.Fatalf("Get(%+v): %v", loc, err)
				}
				if p.Key != c.Key || p.Latitude != c.Center.Latitude || p.Longitude != c.Center.Longitude {
					t.Fatalf("%+v inside %q resolved to %+v", loc, c.Key, p)
				}
			}
		}
	}
}

func TestGrid_ConcurrentReaders(t *testing.T) {
	g := mustGrid(t, 0.5, Degrees)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p, err := g.Get(Location{Latitude: 0.3, Longitude: 23})
				if err != nil {
					errs <- err
					return
				}
				if p.Key != "168-b4-196" {
					errs <- errors.New("unexpected key " + p.Key)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Get: %v", err)
	}
}

