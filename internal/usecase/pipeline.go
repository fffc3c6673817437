// Package usecase orchestrates ocean-color retrieval runs.
package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/oceancolor/internal/adapter/store"
	"go.ngs.io/oceancolor/internal/adapter/store/ncfile"
	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/log"
)

// Searcher lists the granule filenames matching a set of settings.
type Searcher interface {
	Search(ctx context.Context, s domain.RetrievalSettings) ([]string, error)
}

// Renderer draws a subsetted dataset and returns the files it wrote.
type Renderer interface {
	Render(ds *domain.SubsettedDataset, s domain.RetrievalSettings) ([]string, error)
}

// RetrievalRequest encapsulates one retrieval run.
type RetrievalRequest struct {
	Settings domain.RetrievalSettings

	// Save writes the subset to the output directory.
	Save bool

	// Plot renders the subset when a renderer is configured.
	Plot bool
}

// Validate checks if the request is valid.
func (r *RetrievalRequest) Validate() error {
	return r.Settings.Validate()
}

// PipelineResult threads everything a run produced to its callers.
type PipelineResult struct {
	RunID      string                   `json:"run_id"`
	Settings   domain.RetrievalSettings `json:"settings"`
	URLs       []string                 `json:"urls"`
	Report     *domain.RunReport        `json:"report"`
	Shape      [3]int                   `json:"shape"` // time, lat, lon
	Window     domain.IndexWindow       `json:"window"`
	Keys       domain.VariableKeyMap    `json:"keys"`
	OutputPath string                   `json:"output_path,omitempty"`
	PlotPaths  []string                 `json:"plot_paths,omitempty"`
	Duration   string                   `json:"duration"`

	Dataset *domain.SubsettedDataset `json:"-"`
}

// Pipeline runs validate → search → build URLs → subset → save → plot.
// It holds its collaborators explicitly; nothing is kept between runs.
type Pipeline struct {
	searcher  Searcher
	subsetter *Subsetter
	writer    store.DatasetWriter
	renderer  Renderer
	outputDir string
}

// NewPipeline creates a pipeline. writer and renderer may be nil.
func NewPipeline(searcher Searcher, subsetter *Subsetter, writer store.DatasetWriter, renderer Renderer, outputDir string) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		subsetter: subsetter,
		writer:    writer,
		renderer:  renderer,
		outputDir: outputDir,
	}
}

// OutputDir returns the directory subsets are written to.
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// URLs validates the settings, queries the file listing and returns the
// OPeNDAP access URL of every listed granule.
func (p *Pipeline) URLs(ctx context.Context, s domain.RetrievalSettings) ([]string, error) {
	_, urls, err := p.listing(ctx, s)
	return urls, err
}

func (p *Pipeline) listing(ctx context.Context, s domain.RetrievalSettings) ([]string, []string, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	names, err := p.searcher.Search(ctx, s)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search granules: %w", err)
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("%w: for %s to %s", domain.ErrNoGranules, s.DateMin, s.DateMax)
	}
	urls, err := domain.BuildURLs(s, names)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build URLs: %w", err)
	}
	return names, urls, nil
}

// Execute performs one retrieval run.
func (p *Pipeline) Execute(ctx context.Context, req RetrievalRequest) (*PipelineResult, error) {
	// Validate request before any network access.
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	started := time.Now()
	s := req.Settings
	result := &PipelineResult{RunID: uuid.NewString(), Settings: s}
	log.Infow("starting retrieval", "run_id", result.RunID, "source", s.Source, "variable", s.Variable,
		"date_min", s.DateMin, "date_max", s.DateMax, "bounding_box", s.BoundingBox.String())

	names, urls, err := p.listing(ctx, s)
	if err != nil {
		return nil, err
	}
	result.URLs = urls
	log.Infow("listed granules", "run_id", result.RunID, "count", len(urls))

	ds, report, err := p.subsetter.Subset(ctx, s, urls)
	if report != nil {
		report.RunID = result.RunID
		result.Report = report
	}
	if err != nil {
		return result, fmt.Errorf("failed to subset granules: %w", err)
	}
	result.Dataset = ds
	nt, nLat, nLon := ds.Shape()
	result.Shape = [3]int{nt, nLat, nLon}
	result.Window = ds.Window
	result.Keys = ds.Keys

	if req.Save && p.writer != nil {
		ranges, err := domain.ParseDateRanges([]string{names[0], names[len(names)-1]})
		if err != nil {
			return result, err
		}
		path := filepath.Join(p.outputDir, ncfile.Filename(s, ranges[0], ranges[1]))
		if err := p.writer.Write(path, ds); err != nil {
			return result, fmt.Errorf("failed to save dataset: %w", err)
		}
		result.OutputPath = path
		log.Infow("saved subset", "run_id", result.RunID, "path", path)
	}

	if req.Plot && p.renderer != nil {
		paths, err := p.renderer.Render(ds, s)
		if err != nil {
			return result, fmt.Errorf("failed to render dataset: %w", err)
		}
		result.PlotPaths = paths
		log.Infow("rendered subset", "run_id", result.RunID, "files", len(paths))
	}

	result.Duration = time.Since(started).Round(time.Millisecond).String()
	log.Infow("finished retrieval", "run_id", result.RunID, "requested", report.Requested,
		"fetched", report.Fetched, "skipped", len(report.Skipped), "duration", result.Duration)
	return result, nil
}
