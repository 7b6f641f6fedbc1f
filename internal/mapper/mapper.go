// Package mapper converts between geometric coordinates and pixel cells.
package mapper

import (
	"github.com/mohammed-shakir/earthpixel/internal/core/model"
)

type Interface interface {
	CellsForBBox(bb model.BBox) (model.Cells, error)
}
