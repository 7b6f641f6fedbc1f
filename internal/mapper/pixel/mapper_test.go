package pixelmapper

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/mohammed-shakir/earthpixel/internal/core/model"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

func newMapper(t *testing.T, width float64, unit earthpixel.Unit) *Mapper {
	t.Helper()
	g, err := earthpixel.New(width, unit)
	if err != nil {
		t.Fatalf("earthpixel.New: %v", err)
	}
	return New(g)
}

func TestBBox_HappyPath_SortedUnique(t *testing.T) {
	m := newMapper(t, 1000, earthpixel.Meters)
	bb := model.BBox{X1: 17.95, Y1: 59.30, X2: 18.15, Y2: 59.40}

	cells, err := m.CellsForBBox(bb)
	if err != nil {
		t.Fatalf("CellsForBBox err: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("expected non-empty cells for bbox")
	}
	if !sort.StringsAreSorted([]string(cells)) {
		t.Fatalf("cells must be sorted")
	}
	if hasDups(cells) {
		t.Fatalf("cells must be de-duplicated")
	}

	again, err := m.CellsForBBox(bb)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !reflect.DeepEqual(cells, again) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestBBox_Antimeridian(t *testing.T) {
	m := newMapper(t, 0.5, earthpixel.Degrees)
	cells, err := m.CellsForBBox(model.BBox{X1: 179.6, Y1: 0.1, X2: -179.6, Y2: 0.4})
	if err != nil {
		t.Fatalf("CellsForBBox: %v", err)
	}
	// one band, the last and first longitude bands
	want := model.Cells{"168-b4-0", "168-b4-2cf"}
	if !reflect.DeepEqual(cells, want) {
		t.Fatalf("got %v want %v", cells, want)
	}
}

func TestBBox_Errors(t *testing.T) {
	m := newMapper(t, 560, earthpixel.Meters)
	if _, err := m.CellsForBBox(model.BBox{X1: -180, Y1: -90, X2: 180, Y2: 90}); !errors.Is(err, earthpixel.ErrCoverTooLarge) {
		t.Fatalf("err=%v want ErrCoverTooLarge", err)
	}
	if _, err := m.CellsForBBox(model.BBox{X1: 0, Y1: 10, X2: 1, Y2: 5}); !errors.Is(err, earthpixel.ErrInvalidLocation) {
		t.Fatalf("err=%v want ErrInvalidLocation", err)
	}
	if _, err := (&Mapper{}).CellsForBBox(model.BBox{}); err == nil {
		t.Fatalf("expected error without grid")
	}
}

func TestMergeSorted(t *testing.T) {
	got := mergeSorted([]string{"a", "c", "e"}, []string{"b", "c", "f"})
	want := model.Cells{"a", "b", "c", "e", "f"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func hasDups(s []string) bool {
	seen := map[string]struct{}{}
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
