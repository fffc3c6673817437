package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.ngs.io/oceancolor/internal/adapter/store"
	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/log"
)

// DefaultGranuleTimeout bounds each remote open.
const DefaultGranuleTimeout = 2 * time.Minute

// Subsetter assembles a [time, lat, lon] subset from a list of granule URLs.
type Subsetter struct {
	source         store.GranuleSource
	granuleTimeout time.Duration
}

// NewSubsetter creates a subsetter reading from source. A non-positive
// granuleTimeout disables the per-granule bound.
func NewSubsetter(source store.GranuleSource, granuleTimeout time.Duration) *Subsetter {
	return &Subsetter{source: source, granuleTimeout: granuleTimeout}
}

// granuleLayout is what the first granule tells us about every granule.
type granuleLayout struct {
	keys   domain.VariableKeyMap
	window domain.IndexWindow
	lon    []float64
	lat    []float64

	globalAttrs domain.Attributes
	lonAttrs    domain.Attributes
	latAttrs    domain.Attributes
	valueAttrs  domain.Attributes
}

// Subset fetches every URL in order and stacks the windowed frames.
//
// The first granule fixes the variable keys, the index window and the
// metadata copied to the output; if it cannot be opened the run fails.
// Later granules that cannot be opened or read are logged, recorded in the
// report and skipped.
func (s *Subsetter) Subset(ctx context.Context, settings domain.RetrievalSettings, urls []string) (*domain.SubsettedDataset, *domain.RunReport, error) {
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	report := &domain.RunReport{Requested: len(urls), Skipped: []domain.SkippedGranule{}}
	if len(urls) == 0 {
		return nil, report, domain.ErrNoGranules
	}

	first, err := s.open(ctx, urls[0])
	if err != nil {
		return nil, report, fmt.Errorf("failed to open first granule: %w", err)
	}

	var acc domain.Accumulator
	layout, err := func() (*granuleLayout, error) {
		defer func() { _ = first.Close() }()

		layout, err := inspect(first, settings)
		if err != nil {
			return nil, err
		}
		s.appendOrSkip(report, &acc, urls[0], 0, len(urls), readFrame(first, layout, &acc))
		return layout, nil
	}()
	if err != nil {
		return nil, report, err
	}

	for i, url := range urls[1:] {
		if err := ctx.Err(); err != nil {
			return nil, report, fmt.Errorf("retrieval interrupted: %w", err)
		}
		s.appendOrSkip(report, &acc, url, i+1, len(urls), s.fetch(ctx, url, layout, &acc))
	}

	if acc.Len() == 0 {
		return nil, report, fmt.Errorf("%w: %d requested, %d skipped", domain.ErrNoReachableGranules, report.Requested, len(report.Skipped))
	}

	values, timeStart, timeEnd := acc.Stack()
	w := layout.window
	ds := &domain.SubsettedDataset{
		Lon:         domain.SliceAxis(layout.lon, w.LonLow, w.LonHigh),
		Lat:         domain.SliceAxis(layout.lat, w.LatLow, w.LatHigh),
		Values:      values,
		TimeStart:   timeStart,
		TimeEnd:     timeEnd,
		Keys:        layout.keys,
		Window:      w,
		GlobalAttrs: layout.globalAttrs,
		LonAttrs:    layout.lonAttrs,
		LatAttrs:    layout.latAttrs,
		ValueAttrs:  layout.valueAttrs,
	}
	return ds, report, nil
}

func (s *Subsetter) appendOrSkip(report *domain.RunReport, acc *domain.Accumulator, url string, index, total int, err error) {
	if err != nil {
		log.Warnw("skipping granule", "granule", domain.GranuleName(url), "url", url, "index", index+1, "total", total, "error", err)
		report.Skip(url, err)
		return
	}
	report.Fetched++
	log.Infow("fetched granule", "granule", domain.GranuleName(url), "index", index+1, "total", total, "frames", acc.Len())
}

// open opens url under the per-granule timeout.
func (s *Subsetter) open(ctx context.Context, url string) (store.Granule, error) {
	if s.granuleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.granuleTimeout)
		defer cancel()
	}
	g, err := s.source.Open(ctx, url)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnreachable) {
			return nil, err
		}
		return nil, &domain.GranuleError{URL: url, Err: err}
	}
	return g, nil
}

// fetch opens one granule, appends its frame and closes it.
func (s *Subsetter) fetch(ctx context.Context, url string, layout *granuleLayout, acc *domain.Accumulator) error {
	g, err := s.open(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()
	return readFrame(g, layout, acc)
}

// inspect resolves keys, axes, the index window and metadata from a granule.
func inspect(g store.Granule, settings domain.RetrievalSettings) (*granuleLayout, error) {
	names, err := g.VarNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	keys, err := domain.ResolveKeys(names, settings.VariableProduct())
	if err != nil {
		return nil, err
	}

	lon, err := g.ReadAxis(keys.Lon)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitude axis: %w", err)
	}
	lat, err := g.ReadAxis(keys.Lat)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitude axis: %w", err)
	}

	window, err := domain.ComputeIndexWindow(lon, lat, settings.BoundingBox)
	if err != nil {
		return nil, fmt.Errorf("failed to compute index window: %w", err)
	}
	if window.Empty() {
		return nil, fmt.Errorf("%w: bounding box %s selects lon [%d, %d) lat [%d, %d)",
			domain.ErrEmptyWindow, settings.BoundingBox, window.LonLow, window.LonHigh, window.LatLow, window.LatHigh)
	}

	layout := &granuleLayout{keys: keys, window: window, lon: lon, lat: lat}
	if layout.globalAttrs, err = g.GlobalAttrs(); err != nil {
		return nil, fmt.Errorf("failed to read global attributes: %w", err)
	}
	if layout.lonAttrs, err = g.VarAttrs(keys.Lon); err != nil {
		return nil, fmt.Errorf("failed to read %s attributes: %w", keys.Lon, err)
	}
	if layout.latAttrs, err = g.VarAttrs(keys.Lat); err != nil {
		return nil, fmt.Errorf("failed to read %s attributes: %w", keys.Lat, err)
	}
	if layout.valueAttrs, err = g.VarAttrs(keys.Value); err != nil {
		return nil, fmt.Errorf("failed to read %s attributes: %w", keys.Value, err)
	}
	return layout, nil
}

// readFrame reads the time coverage and windowed slice of an open granule.
func readFrame(g store.Granule, layout *granuleLayout, acc *domain.Accumulator) error {
	timeStart, err := g.GlobalAttr("time_coverage_start")
	if err != nil {
		return err
	}
	timeEnd, err := g.GlobalAttr("time_coverage_end")
	if err != nil {
		return err
	}
	frame, err := g.ReadWindow(layout.keys, layout.window)
	if err != nil {
		return err
	}
	return acc.Append(timeStart, timeEnd, frame)
}
