// Command pixelctl runs earthpixel grid operations from the shell and prints
// JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

type gridFlags struct {
	width string
	unit  string
}

func (f *gridFlags) grid() (*earthpixel.Grid, error) {
	u, err := earthpixel.ParseUnit(f.unit)
	if err != nil {
		return nil, err
	}
	g, err := earthpixel.NewFromString(f.width, u)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return g, nil
}

func newRootCmd() *cobra.Command {
	gf := &gridFlags{}
	root := &cobra.Command{
		Use:           "pixelctl",
		Short:         "Equal-width pixel grid tool",
		Long:          "Locate coordinates in the earthpixel grid, decode pixel keys and cover bounding boxes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&gf.width, "width", envOr("PIXEL_WIDTH", "1000"), "pixel width")
	root.PersistentFlags().StringVar(&gf.unit, "unit", envOr("PIXEL_UNIT", "meters"), "width unit: meters or degrees")

	root.AddCommand(
		locationCmd(gf, "key", "Pixel key of a location", func(g *earthpixel.Grid, loc earthpixel.Location) (any, error) {
			k, err := g.Key(loc)
			return map[string]string{"key": k}, err
		}),
		locationCmd(gf, "center", "Pixel center of a location", func(g *earthpixel.Grid, loc earthpixel.Location) (any, error) {
			return g.Center(loc)
		}),
		locationCmd(gf, "get", "Pixel center and key of a location", func(g *earthpixel.Grid, loc earthpixel.Location) (any, error) {
			return g.Get(loc)
		}),
		locationCmd(gf, "locate", "Band indices of a location", func(g *earthpixel.Grid, loc earthpixel.Location) (any, error) {
			return g.Locate(loc)
		}),
		locationCmd(gf, "cell", "Full cell geometry of a location", func(g *earthpixel.Grid, loc earthpixel.Location) (any, error) {
			return g.Cell(loc)
		}),
		extractCmd(),
		debugCmd(gf),
		coverCmd(gf),
	)
	return root
}

// locationCmd takes the location as --lat/--lon, or as two positional
// arguments. Negative positionals must follow "--" or they parse as flags.
func locationCmd(gf *gridFlags, name, short string, fn func(*earthpixel.Grid, earthpixel.Location) (any, error)) *cobra.Command {
	var lat, lon string
	c := &cobra.Command{
		Use:   name + " (--lat LAT --lon LON | [--] <lat> <lon>)",
		Short: short,
		Example: "  pixelctl " + name + " --lat=-33.9 --lon=151.2\n" +
			"  pixelctl " + name + " -- -33.9 151.2",
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 2:
				return nil
			case 0:
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
					return fmt.Errorf("both --lat and --lon are required: %w", earthpixel.ErrInvalidLocation)
				}
				return nil
			default:
				return fmt.Errorf("accepts --lat/--lon or 2 positional args, received %d", len(args))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := gf.grid()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				lat, lon = args[0], args[1]
			}
			loc, err := parseLocation(lat, lon)
			if err != nil {
				return err
			}
			v, err := fn(g, loc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	c.Flags().StringVar(&lat, "lat", "", "latitude in degrees, -90..90")
	c.Flags().StringVar(&lon, "lon", "", "longitude in degrees, -180..180")
	return c
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <key>",
		Short: "Decode a pixel key into its cell (any grid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := earthpixel.Extract(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func debugCmd(gf *gridFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Print the normalized grid width and division count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := gf.grid()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g.Debug())
		},
	}
}

func coverCmd(gf *gridFlags) *cobra.Command {
	var geo bool
	var bbox string
	c := &cobra.Command{
		Use:     "cover (--bbox W,S,E,N | [--] <west,south,east,north>)",
		Short:   "List the pixel keys covering a bounding box",
		Example: "  pixelctl cover --bbox=-10,-5,-9,-4\n  pixelctl cover -- -10,-5,-9,-4",
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1:
				return nil
			case len(args) == 0 && cmd.Flags().Changed("bbox"):
				return nil
			default:
				return fmt.Errorf("accepts --bbox or 1 positional arg, received %d: %w", len(args), earthpixel.ErrInvalidLocation)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := gf.grid()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				bbox = args[0]
			}
			w, s, e, n, err := parseBBox(bbox)
			if err != nil {
				return err
			}
			keys, err := g.Cover(s, w, n, e)
			if err != nil {
				return err
			}
			if !geo {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			cells := make([]earthpixel.Cell, 0, len(keys))
			for _, k := range keys {
				c, err := earthpixel.Extract(k)
				if err != nil {
					return err
				}
				cells = append(cells, c)
			}
			return printJSON(cmd.OutOrStdout(), earthpixel.FeatureCollection(cells...))
		},
	}
	c.Flags().StringVar(&bbox, "bbox", "", "bounding box as west,south,east,north")
	c.Flags().BoolVar(&geo, "geojson", false, "print a GeoJSON FeatureCollection instead of keys")
	return c
}

func parseLocation(lat, lon string) (earthpixel.Location, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return earthpixel.Location{}, fmt.Errorf("latitude %q: %w", lat, earthpixel.ErrInvalidLocation)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return earthpixel.Location{}, fmt.Errorf("longitude %q: %w", lon, earthpixel.ErrInvalidLocation)
	}
	return earthpixel.Location{Latitude: la, Longitude: lo}, nil
}

func parseBBox(s string) (west, south, east, north float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("bbox %q: want west,south,east,north: %w", s, earthpixel.ErrInvalidLocation)
	}
	var v [4]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("bbox %q field %d: %w", s, i, earthpixel.ErrInvalidLocation)
		}
	}
	return v[0], v[1], v[2], v[3], nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pixelctl:", err)
		os.Exit(1)
	}
}
