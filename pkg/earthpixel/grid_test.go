package earthpixel

import (
	"errors"
	"math"
	"testing"
)

func TestNew_DegreesHappyPath(t *testing.T) {
	g, err := New(0.5, Degrees)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Divisions() != 360 || g.Width() != 0.5 {
		t.Fatalf("got %+v want width=0.5 divisions=360", g.Debug())
	}
	if g.Precision() != 8 {
		t.Fatalf("precision=%d want 8", g.Precision())
	}
}

func TestNew_MetersConversion(t *testing.T) {
	g, err := New(560, Meters)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := Debug{Width: 0.00503609, Divisions: 35742}
	if got := g.Debug(); got != want {
		t.Fatalf("debug=%+v want %+v", got, want)
	}

	// empty unit means meters
	g2, err := New(560, "")
	if err != nil {
		t.Fatalf("New empty unit: %v", err)
	}
	if g2.Debug() != want {
		t.Fatalf("empty unit debug=%+v want %+v", g2.Debug(), want)
	}
}

func TestNewFromString(t *testing.T) {
	g, err := NewFromString(" 0.6 ", Degrees)
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	if g.Divisions() != 300 {
		t.Fatalf("divisions=%d want 300", g.Divisions())
	}

	for _, in := range []string{"", "NaN", "abc", "0", "-1", "1e400"} {
		if _, err := NewFromString(in, Degrees); !errors.Is(err, ErrInvalidWidth) {
			t.Fatalf("NewFromString(%q) err=%v want ErrInvalidWidth", in, err)
		}
	}
}

func TestNew_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		width float64
		unit  Unit
	}{
		{"zero", 0, Degrees},
		{"negative", -1, Degrees},
		{"nan", math.NaN(), Degrees},
		{"inf", math.Inf(1), Meters},
		{"too_large_degrees", 220, Degrees},
		{"exactly_180", 180, Degrees},
		{"single_band", 130, Degrees},
		{"half_earth_meters", EarthCircumferenceMeters / 2, Meters},
		{"half_earth_6371km", math.Pi * 6371000, Meters},
		{"unknown_unit", 1, Unit("feet")},
		{"too_many_divisions", 1e-12, Degrees},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.width, tc.unit)
			if !errors.Is(err, ErrInvalidWidth) {
				t.Fatalf("err=%v want ErrInvalidWidth", err)
			}
			if g != nil {
				t.Fatalf("expected no grid on failure, got %v", g)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": Meters, "meters": Meters, " Degrees ": Degrees} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Fatalf("ParseUnit(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseUnit("km"); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("ParseUnit(km) err=%v want ErrInvalidWidth", err)
	}
}

func TestNormalization_IdempotentAndTiling(t *testing.T) {
	inputs := []struct {
		width float64
		unit  Unit
	}{
		{0.5, Degrees}, {1, Degrees}, {2.5, Degrees}, {7.3, Degrees}, {45, Degrees}, {90, Degrees},
		{560, Meters}, {1000, Meters}, {5000, Meters}, {111000, Meters},
	}
	for _, in := range inputs {
		g, err := New(in.width, in.unit)
		if err != nil {
			t.Fatalf("New(%v,%s): %v", in.width, in.unit, err)
		}
		again, err := New(g.Width(), Degrees)
		if err != nil {
			t.Fatalf("rebuild from %+v: %v", g.Debug(), err)
		}
		if again.Debug() != g.Debug() {
			t.Fatalf("not idempotent: %+v -> %+v", g.Debug(), again.Debug())
		}
	}
}

func TestTiling_SmallWidths(t *testing.T) {
	for _, m := range []float64{560, 100, 50, 10, 1, 0.1} {
		g := mustGrid(t, m, Meters)
		d := g.Divisions()

		top, err := Extract(EncodeKey(d, d-1, 0))
		if err != nil {
			t.Fatalf("%vm: Extract top cell: %v", m, err)
		}
		if top.Bounds.North != 90 || top.Center.Latitude >= 90 || top.Center.Latitude <= top.Bounds.South {
			t.Fatalf("%vm: top cell %+v must end at 90 with its center inside", m, top)
		}
		bottom, err := Extract(EncodeKey(d, 0, 0))
		if err != nil {
			t.Fatalf("%vm: Extract bottom cell: %v", m, err)
		}
		if bottom.Bounds.South != -90 || bottom.Center.Latitude <= -90 {
			t.Fatalf("%vm: bottom cell %+v must start at -90", m, bottom)
		}
		// neighbours in the middle of the range share an edge
		mid := d / 2
		a, _ := Extract(EncodeKey(d, mid, 0))
		b, _ := Extract(EncodeKey(d, mid+1, 0))
		if a.Bounds.North != b.Bounds.South {
			t.Fatalf("%vm: band %d north=%v != band %d south=%v", m, mid, a.Bounds.North, mid+1, b.Bounds.South)
		}
	}
}
