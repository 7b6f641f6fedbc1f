package earthpixel

import (
	"fmt"
	"math"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports ErrInvalidLocation for NaN/Inf or out of range coordinates.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) {
		return fmt.Errorf("latitude %v is not a number: %w", l.Latitude, ErrInvalidLocation)
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return fmt.Errorf("longitude %v is not a number: %w", l.Longitude, ErrInvalidLocation)
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v must be in [-90,90]: %w", l.Latitude, ErrInvalidLocation)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v must be in [-180,180]: %w", l.Longitude, ErrInvalidLocation)
	}
	return nil
}

type Bounds struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
}

// Widths are a cell's angular extents in degrees.
type Widths struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Cell is the full geometry of one pixel.
type Cell struct {
	Center Location `json:"center"`
	Bounds Bounds   `json:"bounds"`
	Widths Widths   `json:"widths"`
	Key    string   `json:"key"`
}

// Contains reports whether loc lies within the cell bounds, edges included.
// Bounds are rounded to Precision decimals, so one unit in the last place is
// tolerated on each side.
func (c Cell) Contains(loc Location) bool {
	eps := 1 / scale
	return loc.Latitude >= c.Bounds.South-eps && loc.Latitude <= c.Bounds.North+eps &&
		loc.Longitude >= c.Bounds.West-eps && loc.Longitude <= c.Bounds.East+eps
}

// Pixel is the flat answer to Get: the cell center plus its key.
type Pixel struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Key       string  `json:"key"`
}

// Index locates a cell inside its grid.
type Index struct {
	Lat          int `json:"lat_index"`
	Lon          int `json:"lon_index"`
	LonDivisions int `json:"lon_divisions"`
}

func (g *Grid) Locate(loc Location) (Index, error) {
	if err := loc.Validate(); err != nil {
		return Index{}, err
	}
	return g.locate(loc), nil
}

func (g *Grid) locate(loc Location) Index {
	lat := latBand(g.divisions, loc.Latitude)
	n := lonDivisions(g.divisions, lat)
	return Index{Lat: lat, Lon: lonBand(n, loc.Longitude), LonDivisions: n}
}

func (g *Grid) Center(loc Location) (Location, error) {
	idx, err := g.Locate(loc)
	if err != nil {
		return Location{}, err
	}
	return center(g.divisions, idx), nil
}

func (g *Grid) Key(loc Location) (string, error) {
	idx, err := g.Locate(loc)
	if err != nil {
		return "", err
	}
	return EncodeKey(g.divisions, idx.Lat, idx.Lon), nil
}

// Get returns center and key computed from a single Locate.
func (g *Grid) Get(loc Location) (Pixel, error) {
	idx, err := g.Locate(loc)
	if err != nil {
		return Pixel{}, err
	}
	c := center(g.divisions, idx)
	return Pixel{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Key:       EncodeKey(g.divisions, idx.Lat, idx.Lon),
	}, nil
}

// Cell returns the full geometry of the cell containing loc.
func (g *Grid) Cell(loc Location) (Cell, error) {
	idx, err := g.Locate(loc)
	if err != nil {
		return Cell{}, err
	}
	return newCell(g.divisions, idx), nil
}

func center(divisions int, idx Index) Location {
	return Location{
		Latitude:  latExtent(divisions, idx.Lat).center,
		Longitude: lonExtent(idx.LonDivisions, idx.Lon).center,
	}
}

func newCell(divisions int, idx Index) Cell {
	lat := latExtent(divisions, idx.Lat)
	lon := lonExtent(idx.LonDivisions, idx.Lon)
	return Cell{
		Center: Location{Latitude: lat.center, Longitude: lon.center},
		Bounds: Bounds{North: lat.max, East: lon.max, South: lat.min, West: lon.min},
		Widths: Widths{Latitude: bandWidth(divisions), Longitude: round(lonWidth(idx.LonDivisions))},
		Key:    EncodeKey(divisions, idx.Lat, idx.Lon),
	}
}
