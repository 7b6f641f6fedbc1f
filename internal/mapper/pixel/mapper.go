package pixelmapper

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/earthpixel/internal/core/model"
	"github.com/mohammed-shakir/earthpixel/internal/mapper"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

type Mapper struct {
	grid *earthpixel.Grid
}

var _ mapper.Interface = (*Mapper)(nil)

func New(g *earthpixel.Grid) *Mapper { return &Mapper{grid: g} }

// CellsForBBox returns the sorted keys of all pixels touching bb. A bbox
// crossing the antimeridian (X1 > X2) is split in two.
func (m *Mapper) CellsForBBox(bb model.BBox) (model.Cells, error) {
	if m.grid == nil {
		return nil, errors.New("pixel mapper: grid is required")
	}
	if bb.X1 <= bb.X2 {
		keys, err := m.grid.Cover(bb.Y1, bb.X1, bb.Y2, bb.X2)
		if err != nil {
			return nil, fmt.Errorf("pixel cover %s: %w", bb, err)
		}
		return keys, nil
	}

	west, err := m.grid.Cover(bb.Y1, bb.X1, bb.Y2, 180)
	if err != nil {
		return nil, fmt.Errorf("pixel cover %s (west part): %w", bb, err)
	}
	east, err := m.grid.Cover(bb.Y1, -180, bb.Y2, bb.X2)
	if err != nil {
		return nil, fmt.Errorf("pixel cover %s (east part): %w", bb, err)
	}
	if len(west)+len(east) > earthpixel.MaxCoverCells {
		return nil, fmt.Errorf("pixel cover %s: %w", bb, earthpixel.ErrCoverTooLarge)
	}
	return mergeSorted(west, east), nil
}

// merges two sorted key lists, dropping duplicates
func mergeSorted(a, b []string) model.Cells {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var next string
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			next = a[i]
			i++
		case i >= len(a) || b[j] < a[i]:
			next = b[j]
			j++
		default:
			next = a[i]
			i++
			j++
		}
		if n := len(out); n > 0 && out[n-1] == next {
			continue
		}
		out = append(out, next)
	}
	return out
}
