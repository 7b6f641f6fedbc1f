// Package earthpixel assigns points on the Earth's surface to cells of a
// latitude/longitude grid whose cells keep an approximately constant physical
// width, and encodes those cells as compact self-describing keys.
package earthpixel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// EarthRadiusMeters is the 6371.2 km reference sphere. Keys persisted by
	// other implementations depend on this exact value.
	EarthRadiusMeters        = 6371200.0
	EarthCircumferenceMeters = 2 * math.Pi * EarthRadiusMeters

	// Precision is the number of decimal places widths and coordinates are rounded to.
	Precision = 8

	// MaxDivisions bounds the latitude band count (about 2 cm per band).
	MaxDivisions = 1 << 30
)

type Unit string

const (
	Meters  Unit = "meters"
	Degrees Unit = "degrees"
)

// ParseUnit maps user input to a Unit. The empty string means Meters.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", Meters:
		return Meters, nil
	case Degrees:
		return Degrees, nil
	default:
		return "", fmt.Errorf("unit %q (must be meters or degrees): %w", s, ErrInvalidWidth)
	}
}

// Debug is a read-only snapshot of a grid's configuration.
type Debug struct {
	Width     float64 `json:"width"`
	Divisions int     `json:"divisions"`
}

// Grid is an immutable grid configuration. The zero value is not usable; build
// one with New or NewFromString.
type Grid struct {
	width     float64
	divisions int
}

// New builds a grid whose latitude bands are as close as possible to width
// (in unit) while tiling -90..90 exactly.
func New(width float64, unit Unit) (*Grid, error) {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return nil, fmt.Errorf("width %v must be a finite positive number: %w", width, ErrInvalidWidth)
	}

	var deg float64
	switch unit {
	case Meters, "":
		deg = width * 360 / EarthCircumferenceMeters
	case Degrees:
		deg = width
	default:
		return nil, fmt.Errorf("unit %q (must be meters or degrees): %w", unit, ErrInvalidWidth)
	}

	if deg >= 180 {
		return nil, fmt.Errorf("width %v %s spans %.8f degrees (must be < 180): %w", width, unitOrDefault(unit), deg, ErrInvalidWidth)
	}
	n := math.Round(180 / deg)
	if n < 2 {
		return nil, fmt.Errorf("width %v %s yields %v latitude bands (need at least 2): %w", width, unitOrDefault(unit), n, ErrInvalidWidth)
	}
	if n > MaxDivisions {
		return nil, fmt.Errorf("width %v %s yields more than %d latitude bands: %w", width, unitOrDefault(unit), MaxDivisions, ErrInvalidWidth)
	}

	d := int(n)
	return &Grid{width: bandWidth(d), divisions: d}, nil
}

// NewFromString is New for textual widths such as "0.6" or " 500 ".
func NewFromString(width string, unit Unit) (*Grid, error) {
	s := strings.TrimSpace(width)
	if s == "" {
		return nil, fmt.Errorf("width is required: %w", ErrInvalidWidth)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("width %q is not a number: %w", width, ErrInvalidWidth)
	}
	return New(f, unit)
}

func (g *Grid) Width() float64 { return g.width }

func (g *Grid) Divisions() int { return g.divisions }

func (g *Grid) Precision() int { return Precision }

func (g *Grid) Debug() Debug {
	return Debug{Width: g.width, Divisions: g.divisions}
}

func (g *Grid) String() string {
	return fmt.Sprintf("earthpixel.Grid{width=%.8f, divisions=%d}", g.width, g.divisions)
}

// bandWidth is the reported latitude band width for a division count,
// rounded to Precision decimals.
func bandWidth(divisions int) float64 {
	return round(180 / float64(divisions))
}

var scale = math.Pow10(Precision)

func round(v float64) float64 {
	return math.Round(v*scale) / scale
}

func unitOrDefault(u Unit) Unit {
	if u == "" {
		return Meters
	}
	return u
}
