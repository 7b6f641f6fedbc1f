// Package pixelsvc is the service layer behind the HTTP surface. It runs the
// grid operations and adds caching, hotness tracking, hit events and
// per-operation metrics.
package pixelsvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/earthpixel/internal/core/model"
	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
	"github.com/mohammed-shakir/earthpixel/internal/hitevents"
	"github.com/mohammed-shakir/earthpixel/internal/hotness"
	mylog "github.com/mohammed-shakir/earthpixel/internal/logger"
	"github.com/mohammed-shakir/earthpixel/internal/mapper"
	pixelmapper "github.com/mohammed-shakir/earthpixel/internal/mapper/pixel"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

// Extractor decodes keys, normally through the cell cache.
type Extractor interface {
	Extract(ctx context.Context, key string) (earthpixel.Cell, error)
	ExtractMany(ctx context.Context, keys []string) ([]earthpixel.Cell, error)
}

type HitPublisher interface {
	Publish(ev hitevents.Event)
}

type extractFunc func(string) (earthpixel.Cell, error)

func (f extractFunc) Extract(_ context.Context, key string) (earthpixel.Cell, error) {
	return f(key)
}

func (f extractFunc) ExtractMany(_ context.Context, keys []string) ([]earthpixel.Cell, error) {
	out := make([]earthpixel.Cell, 0, len(keys))
	for _, k := range keys {
		c, err := f(k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type Options struct {
	Logger *slog.Logger
	// Cells defaults to plain earthpixel.Extract.
	Cells Extractor
	Hot   hotness.Interface
	Hits  HitPublisher
	// Requested and Unit describe how the grid was configured.
	Requested float64
	Unit      earthpixel.Unit
}

type Service struct {
	grid   *earthpixel.Grid
	mapper mapper.Interface
	opts   Options
}

func New(g *earthpixel.Grid, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cells == nil {
		opts.Cells = extractFunc(earthpixel.Extract)
	}
	return &Service{grid: g, mapper: pixelmapper.New(g), opts: opts}
}

func (s *Service) GridInfo() model.GridInfo {
	d := s.grid.Debug()
	unit := s.opts.Unit
	if unit == "" {
		unit = earthpixel.Meters
	}
	return model.GridInfo{
		Width:     d.Width,
		Divisions: d.Divisions,
		Precision: s.grid.Precision(),
		Unit:      string(unit),
		Requested: s.opts.Requested,
	}
}

func (s *Service) Get(ctx context.Context, loc earthpixel.Location) (earthpixel.Pixel, error) {
	start := time.Now()
	px, err := s.grid.Get(loc)
	observe("get", err, start)
	if err != nil {
		return earthpixel.Pixel{}, err
	}
	s.hit(ctx, "get", px.Key, loc)
	return px, nil
}

func (s *Service) Key(ctx context.Context, loc earthpixel.Location) (string, error) {
	start := time.Now()
	k, err := s.grid.Key(loc)
	observe("key", err, start)
	if err != nil {
		return "", err
	}
	s.hit(ctx, "key", k, loc)
	return k, nil
}

func (s *Service) Center(_ context.Context, loc earthpixel.Location) (earthpixel.Location, error) {
	start := time.Now()
	c, err := s.grid.Center(loc)
	observe("center", err, start)
	return c, err
}

func (s *Service) Locate(_ context.Context, loc earthpixel.Location) (earthpixel.Index, error) {
	start := time.Now()
	idx, err := s.grid.Locate(loc)
	observe("locate", err, start)
	return idx, err
}

// Extract decodes any valid key, including keys of other grids.
func (s *Service) Extract(ctx context.Context, key string) (earthpixel.Cell, error) {
	start := time.Now()
	c, err := s.opts.Cells.Extract(ctx, key)
	observe("extract", err, start)
	return c, err
}

// ExtractMany decodes a batch of keys, in order.
func (s *Service) ExtractMany(ctx context.Context, keys []string) ([]earthpixel.Cell, error) {
	start := time.Now()
	cells, err := s.opts.Cells.ExtractMany(ctx, keys)
	observe("extract_many", err, start)
	return cells, err
}

func (s *Service) Cover(_ context.Context, bb model.BBox) (model.Cells, error) {
	start := time.Now()
	cells, err := s.mapper.CellsForBBox(bb)
	observe("cover", err, start)
	return cells, err
}

// Hotness reports the decayed request score of key. Zero when tracking is off.
func (s *Service) Hotness(key string) model.Hotness {
	h := model.Hotness{Key: key}
	if s.opts.Hot != nil {
		h.Score = s.opts.Hot.Score(key)
	}
	return h
}

func (s *Service) hit(ctx context.Context, op, key string, loc earthpixel.Location) {
	if s.opts.Hot != nil {
		s.opts.Hot.Inc(key)
	}
	if s.opts.Hits != nil {
		s.opts.Hits.Publish(hitevents.Event{Op: op, Key: key, Lat: loc.Latitude, Lon: loc.Longitude})
	}
	s.opts.Logger.DebugContext(mylog.WithPixelKey(ctx, key), "pixel hit", "op", op)
}

func observe(op string, err error, start time.Time) {
	observability.ObservePixelOp(op, Result(err), time.Since(start).Seconds())
}

// Result is the metric label for an operation outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, earthpixel.ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, earthpixel.ErrMalformedKey):
		return "malformed_key"
	case errors.Is(err, earthpixel.ErrCoverTooLarge):
		return "cover_too_large"
	case errors.Is(err, earthpixel.ErrInvalidWidth):
		return "invalid_width"
	default:
		return "error"
	}
}
