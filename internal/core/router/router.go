// Package router holds the HTTP handlers for the pixel query surface.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/earthpixel/internal/core/model"
	mylog "github.com/mohammed-shakir/earthpixel/internal/logger"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

// Service is what the handlers need from the service layer.
type Service interface {
	GridInfo() model.GridInfo
	Get(ctx context.Context, loc earthpixel.Location) (earthpixel.Pixel, error)
	Key(ctx context.Context, loc earthpixel.Location) (string, error)
	Center(ctx context.Context, loc earthpixel.Location) (earthpixel.Location, error)
	Locate(ctx context.Context, loc earthpixel.Location) (earthpixel.Index, error)
	Extract(ctx context.Context, key string) (earthpixel.Cell, error)
	ExtractMany(ctx context.Context, keys []string) ([]earthpixel.Cell, error)
	Cover(ctx context.Context, bb model.BBox) (model.Cells, error)
	Hotness(key string) model.Hotness
}

// Mount registers the /v1 routes on r.
func Mount(r chi.Router, logger *slog.Logger, svc Service) {
	h := &handlers{log: logger, svc: svc}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/grid", h.grid)
		r.Get("/pixel", h.pixel)
		r.Get("/pixel/key", h.key)
		r.Get("/pixel/center", h.center)
		r.Get("/pixel/locate", h.locate)
		r.Get("/cells/{key}", h.cell)
		r.Get("/cells/{key}/geojson", h.cellGeoJSON)
		r.Get("/cells/{key}/hotness", h.hotness)
		r.Get("/cover", h.cover)
	})
}

type handlers struct {
	log *slog.Logger
	svc Service
}

func (h *handlers) grid(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GridInfo())
}

func (h *handlers) pixel(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePixelRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	px, err := h.svc.Get(r.Context(), q.Location)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, px)
}

func (h *handlers) key(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePixelRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	k, err := h.svc.Key(r.Context(), q.Location)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": k})
}

func (h *handlers) center(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePixelRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Center(r.Context(), q.Location)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) locate(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePixelRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	idx, err := h.svc.Locate(r.Context(), q.Location)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (h *handlers) cell(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Extract(r.Context(), ParseCellRequest(r).Key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) cellGeoJSON(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Extract(r.Context(), ParseCellRequest(r).Key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeGeoJSON(w, c.Feature())
}

func (h *handlers) hotness(w http.ResponseWriter, r *http.Request) {
	key := ParseCellRequest(r).Key
	if _, err := earthpixel.Extract(key); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Hotness(key))
}

func (h *handlers) cover(w http.ResponseWriter, r *http.Request) {
	q, err := ParseCoverRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cells, err := h.svc.Cover(r.Context(), q.BBox)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !q.GeoJSON {
		writeJSON(w, http.StatusOK, struct {
			Count int      `json:"count"`
			Keys  []string `json:"keys"`
		}{Count: len(cells), Keys: cells})
		return
	}

	out, err := h.svc.ExtractMany(r.Context(), cells)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeGeoJSON(w, earthpixel.FeatureCollection(out...))
}

// fail maps domain errors to status codes: bad input is 400, an oversized
// cover 422, anything else 500.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		h.log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": mylog.RequestID(r.Context()),
	})
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, earthpixel.ErrInvalidLocation),
		errors.Is(err, earthpixel.ErrMalformedKey),
		errors.Is(err, earthpixel.ErrInvalidWidth):
		return http.StatusBadRequest
	case errors.Is(err, earthpixel.ErrCoverTooLarge):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeGeoJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func ParsePixelRequest(r *http.Request) (model.PixelRequest, error) {
	q := r.URL.Query()
	lat, err := parseCoord(q.Get("lat"), "lat")
	if err != nil {
		return model.PixelRequest{}, err
	}
	lon, err := parseCoord(q.Get("lon"), "lon")
	if err != nil {
		return model.PixelRequest{}, err
	}
	return model.PixelRequest{Location: earthpixel.Location{Latitude: lat, Longitude: lon}}, nil
}

func ParseCellRequest(r *http.Request) model.CellRequest {
	return model.CellRequest{Key: chi.URLParam(r, "key")}
}

func ParseCoverRequest(r *http.Request) (model.CoverRequest, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		return model.CoverRequest{}, fmt.Errorf("missing required parameter: bbox: %w", earthpixel.ErrInvalidLocation)
	}
	bb, err := parseBBOX(raw)
	if err != nil {
		return model.CoverRequest{}, fmt.Errorf("invalid bbox: %w", err)
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "", "json":
		return model.CoverRequest{BBox: bb}, nil
	case "geojson":
		return model.CoverRequest{BBox: bb, GeoJSON: true}, nil
	default:
		return model.CoverRequest{}, fmt.Errorf("unsupported format %q: %w", format, earthpixel.ErrInvalidLocation)
	}
}

// parseBBOX reads "west,south,east,north" with an optional trailing
// EPSG:4326. west > east means the box crosses the antimeridian.
func parseBBOX(bboxParam string) (model.BBox, error) {
	parts := strings.Split(bboxParam, ",")
	if len(parts) == 5 {
		srid := strings.ToUpper(strings.TrimSpace(parts[4]))
		if srid != "EPSG:4326" {
			return model.BBox{}, fmt.Errorf("only EPSG:4326 is supported (got %q): %w", srid, earthpixel.ErrInvalidLocation)
		}
		parts = parts[:4]
	}
	if len(parts) != 4 {
		return model.BBox{}, fmt.Errorf("expected west,south,east,north: %w", earthpixel.ErrInvalidLocation)
	}
	var v [4]float64
	for i, name := range []string{"west", "south", "east", "north"} {
		f, err := parseCoord(parts[i], name)
		if err != nil {
			return model.BBox{}, err
		}
		v[i] = f
	}
	bb := model.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	if bb.Y2 < bb.Y1 {
		return model.BBox{}, fmt.Errorf("north must be >= south: %w", earthpixel.ErrInvalidLocation)
	}
	return bb, nil
}

func parseCoord(v, name string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("missing required parameter: %s: %w", name, earthpixel.ErrInvalidLocation)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse float %q: %w", name, v, earthpixel.ErrInvalidLocation)
	}
	return f, nil
}
