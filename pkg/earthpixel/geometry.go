package earthpixel

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bound is the cell as an orb bound ([lon,lat] points).
func (c Cell) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.Bounds.West, c.Bounds.South},
		Max: orb.Point{c.Bounds.East, c.Bounds.North},
	}
}

// Polygon is the closed ring of the cell bounds.
func (c Cell) Polygon() orb.Polygon {
	return c.Bound().ToPolygon()
}

// Feature renders the cell as a GeoJSON polygon feature.
func (c Cell) Feature() *geojson.Feature {
	f := geojson.NewFeature(c.Polygon())
	f.Properties["key"] = c.Key
	f.Properties["center"] = []float64{c.Center.Longitude, c.Center.Latitude}
	f.Properties["lat_width"] = c.Widths.Latitude
	f.Properties["lon_width"] = c.Widths.Longitude
	if d, lat, lon, err := DecodeKey(c.Key); err == nil {
		f.Properties["divisions"] = d
		f.Properties["lat_index"] = lat
		f.Properties["lon_index"] = lon
	}
	return f
}

func FeatureCollection(cells ...Cell) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cells {
		fc.Append(c.Feature())
	}
	return fc
}
