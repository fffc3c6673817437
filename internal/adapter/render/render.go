// Package render draws subsetted datasets as PNG heat maps and point time
// series with gonum/plot.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/log"
)

// Color scale limits in value units. Chlorophyll spans several decades, so
// frames are drawn on a log10 scale.
const (
	MinValue = 1e-4
	MaxValue = 100
)

const (
	figWidth  = 6 * vg.Inch
	figHeight = 5 * vg.Inch
)

// Point is a geographic location for the time series plot.
type Point struct {
	Lon float64
	Lat float64
}

// Renderer writes one heat map per time step and, for multi-step subsets,
// a time series at Point.
type Renderer struct {
	dir   string
	point *Point
}

// NewRenderer creates a renderer writing to dir. point may be nil.
func NewRenderer(dir string, point *Point) *Renderer {
	return &Renderer{dir: dir, point: point}
}

// Render draws ds and returns the paths written.
func (r *Renderer) Render(ds *domain.SubsettedDataset, s domain.RetrievalSettings) ([]string, error) {
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	nt, nLat, nLon := ds.Shape()
	if nt == 0 || nLat == 0 || nLon == 0 {
		return nil, fmt.Errorf("nothing to render: shape (%d, %d, %d)", nt, nLat, nLon)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	prefix := fmt.Sprintf("%s_%s", s.Source, s.Variable)
	paths := make([]string, 0, nt+1)
	for t := 0; t < nt; t++ {
		path := filepath.Join(r.dir, fmt.Sprintf("%s_%03d.png", prefix, t))
		if err := r.frame(ds, t, path); err != nil {
			return paths, err
		}
		log.Debugw("rendered frame", "path", path, "time_start", ds.TimeStart[t])
		paths = append(paths, path)
	}

	if r.point != nil && nt > 1 {
		path := filepath.Join(r.dir, prefix+"_series.png")
		ok, err := r.series(ds, path)
		if err != nil {
			return paths, err
		}
		if ok {
			paths = append(paths, path)
		} else {
			log.Warnw("no valid values at series point", "lon", r.point.Lon, "lat", r.point.Lat)
		}
	}
	return paths, nil
}

func (r *Renderer) frame(ds *domain.SubsettedDataset, t int, path string) error {
	cm := moreland.ExtendedKindlmann()
	hm := plotter.NewHeatMap(newLogGrid(ds, t), cm.Palette(255))
	hm.Min = math.Log10(MinValue)
	hm.Max = math.Log10(MaxValue)
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = fmt.Sprintf("log10 %s, %s to %s", ds.Keys.Value, ds.TimeStart[t], ds.TimeEnd[t])
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(hm)

	if err := p.Save(figWidth, figHeight, path); err != nil {
		return fmt.Errorf("failed to save frame %d: %w", t, err)
	}
	return nil
}

// series plots the values at the grid cell nearest the configured point.
// It reports false when every step is missing there.
func (r *Renderer) series(ds *domain.SubsettedDataset, path string) (bool, error) {
	j, lon, err := domain.FindNearest(ds.Lon, r.point.Lon)
	if err != nil {
		return false, fmt.Errorf("failed to locate series longitude: %w", err)
	}
	i, lat, err := domain.FindNearest(ds.Lat, r.point.Lat)
	if err != nil {
		return false, fmt.Errorf("failed to locate series latitude: %w", err)
	}

	values := ds.Series(i, j)
	xys := make(plotter.XYs, 0, len(values))
	for t, v := range values {
		if v == domain.FillValue || math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(t), Y: v})
	}
	if len(xys) == 0 {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s at (%.3f, %.3f)", ds.Keys.Value, lon, lat)
	p.Y.Label.Text = ds.Keys.Value
	p.NominalX(ds.TimeStart...)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return false, fmt.Errorf("failed to build series line: %w", err)
	}
	points, err := plotter.NewScatter(xys)
	if err != nil {
		return false, fmt.Errorf("failed to build series points: %w", err)
	}
	p.Add(line, points)

	if err := p.Save(figWidth, figHeight/2, path); err != nil {
		return false, fmt.Errorf("failed to save series: %w", err)
	}
	return true, nil
}

// logGrid adapts one time step to plotter.GridXYZ with ascending axes and
// log10 values. Missing or non-positive cells become NaN.
type logGrid struct {
	m        *mat.Dense
	lon, lat []float64
	flipLat  bool
}

func newLogGrid(ds *domain.SubsettedDataset, t int) logGrid {
	return logGrid{
		m:       ds.Frame(t),
		lon:     ds.Lon,
		lat:     ds.Lat,
		flipLat: len(ds.Lat) > 1 && ds.Lat[0] > ds.Lat[len(ds.Lat)-1],
	}
}

func (g logGrid) Dims() (c, r int) { return len(g.lon), len(g.lat) }

func (g logGrid) row(r int) int {
	if g.flipLat {
		return len(g.lat) - 1 - r
	}
	return r
}

func (g logGrid) Z(c, r int) float64 {
	v := g.m.At(g.row(r), c)
	if v == domain.FillValue || math.IsNaN(v) || v <= 0 {
		return math.NaN()
	}
	v = math.Min(math.Max(v, MinValue), MaxValue)
	return math.Log10(v)
}

func (g logGrid) X(c int) float64 { return g.lon[c] }

func (g logGrid) Y(r int) float64 { return g.lat[g.row(r)] }
