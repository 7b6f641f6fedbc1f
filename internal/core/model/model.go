// Package model defines core domain types shared across the service.
package model

import (
	"fmt"

	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

// BBox in EPSG:4326 degrees: X is longitude, Y is latitude.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
}

// String representation matching the ?bbox= query format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.X1, b.Y1, b.X2, b.Y2)
}

// Cells is a sorted list of pixel keys.
type Cells []string

type PixelRequest struct {
	Location earthpixel.Location
}

type CellRequest struct {
	Key string
}

type CoverRequest struct {
	BBox    BBox
	GeoJSON bool
}

type GridInfo struct {
	Width     float64 `json:"width"`
	Divisions int     `json:"divisions"`
	Precision int     `json:"precision"`
	Unit      string  `json:"unit"`
	Requested float64 `json:"requested_width"`
}

type Hotness struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}
