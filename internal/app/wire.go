// Package app wires the production collaborators into a retrieval pipeline.
package app

import (
	"go.ngs.io/oceancolor/internal/adapter/render"
	"go.ngs.io/oceancolor/internal/adapter/search"
	"go.ngs.io/oceancolor/internal/adapter/store/ncfile"
	"go.ngs.io/oceancolor/internal/adapter/store/opendap"
	"go.ngs.io/oceancolor/internal/config"
	"go.ngs.io/oceancolor/internal/usecase"
)

// NewPipeline builds the pipeline described by c: OceanData file search,
// OPeNDAP granule reads, NetCDF-4 output and, when enabled, PNG rendering.
func NewPipeline(c config.Config) *usecase.Pipeline {
	searcher := search.NewClient(c.SearchURL, c.DataDir, c.SearchTimeout.Duration)
	subsetter := usecase.NewSubsetter(opendap.NewSource(), c.GranuleTimeout.Duration)

	var renderer usecase.Renderer
	if c.Plot.Enabled {
		renderer = render.NewRenderer(c.Plot.Dir, SeriesPoint(c.Plot))
	}
	return usecase.NewPipeline(searcher, subsetter, ncfile.NewWriter(), renderer, c.OutputDir)
}

// SeriesPoint returns the configured time series location, or nil when
// either coordinate is unset.
func SeriesPoint(p config.Plot) *render.Point {
	if p.PointLon == nil || p.PointLat == nil {
		return nil
	}
	return &render.Point{Lon: *p.PointLon, Lat: *p.PointLat}
}
