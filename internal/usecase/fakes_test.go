package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.ngs.io/oceancolor/internal/adapter/store"
	"go.ngs.io/oceancolor/internal/domain"
)

// fakeGranule is a 1-degree global grid whose values encode (step, lat row,
// lon column) so tests can check which cells landed where.
type fakeGranule struct {
	step      int
	names     []string
	lon, lat  []float64
	timeStart string
	timeEnd   string
	noTime    bool
	failRead  bool

	mu     *sync.Mutex
	closed *int
}

func (g *fakeGranule) VarNames() ([]string, error) { return g.names, nil }

func (g *fakeGranule) ReadAxis(name string) ([]float64, error) {
	switch name {
	case "lon":
		return g.lon, nil
	case "lat":
		return g.lat, nil
	}
	return nil, fmt.Errorf("no axis %s", name)
}

func (g *fakeGranule) ReadWindow(keys domain.VariableKeyMap, w domain.IndexWindow) (domain.Frame, error) {
	if g.failRead {
		return domain.Frame{}, errors.New("read timed out")
	}
	f := domain.Frame{NLat: w.NLat(), NLon: w.NLon()}
	for i := w.LatLow; i < w.LatHigh; i++ {
		for j := w.LonLow; j < w.LonHigh; j++ {
			f.Values = append(f.Values, cellValue(g.step, i, j))
		}
	}
	return f, nil
}

func (g *fakeGranule) GlobalAttr(name string) (string, error) {
	if g.noTime {
		return "", errors.New("missing attribute")
	}
	switch name {
	case "time_coverage_start":
		return g.timeStart, nil
	case "time_coverage_end":
		return g.timeEnd, nil
	}
	return "", fmt.Errorf("no attribute %s", name)
}

func (g *fakeGranule) GlobalAttrs() (domain.Attributes, error) {
	return domain.Attributes{{Name: "title", Value: fmt.Sprintf("granule %d", g.step)}}, nil
}

func (g *fakeGranule) VarAttrs(name string) (domain.Attributes, error) {
	return domain.Attributes{{Name: "long_name", Value: name}}, nil
}

func (g *fakeGranule) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	*g.closed++
	return nil
}

func cellValue(step, i, j int) float64 {
	return float64(step*100000 + i*1000 + j)
}

func axis(first, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = first + float64(i)*step
	}
	return out
}

// fakeSource serves fakeGranules by URL. URLs in unreachable fail, URLs in
// hang block until the context expires.
type fakeSource struct {
	granules    map[string]*fakeGranule
	unreachable map[string]bool
	hang        map[string]bool

	mu     sync.Mutex
	opened []string
	closed int
}

func newFakeSource(urls []string) *fakeSource {
	src := &fakeSource{
		granules:    map[string]*fakeGranule{},
		unreachable: map[string]bool{},
		hang:        map[string]bool{},
	}
	for k, u := range urls {
		src.granules[u] = &fakeGranule{
			step:      k,
			names:     []string{"lat", "lon", "chlor_a", "palette"},
			lon:       axis(-179.5, 1, 360),
			lat:       axis(89.5, -1, 180),
			timeStart: fmt.Sprintf("start-%d", k),
			timeEnd:   fmt.Sprintf("end-%d", k),
			mu:        &src.mu,
			closed:    &src.closed,
		}
	}
	return src
}

func (s *fakeSource) Open(ctx context.Context, url string) (store.Granule, error) {
	s.mu.Lock()
	s.opened = append(s.opened, url)
	s.mu.Unlock()

	if s.hang[url] {
		<-ctx.Done()
		return nil, &domain.GranuleError{URL: url, Err: ctx.Err()}
	}
	if s.unreachable[url] {
		return nil, &domain.GranuleError{URL: url, Err: errors.New("connection refused")}
	}
	g, ok := s.granules[url]
	if !ok {
		return nil, &domain.GranuleError{URL: url, Err: errors.New("not found")}
	}
	return g, nil
}

func (s *fakeSource) closedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSearcher struct {
	names []string
	err   error
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, _ domain.RetrievalSettings) ([]string, error) {
	f.calls++
	return f.names, f.err
}

type fakeWriter struct {
	path string
	ds   *domain.SubsettedDataset
}

func (f *fakeWriter) Write(path string, ds *domain.SubsettedDataset) error {
	f.path = path
	f.ds = ds
	return nil
}

type fakeRenderer struct{ calls int }

func (f *fakeRenderer) Render(_ *domain.SubsettedDataset, _ domain.RetrievalSettings) ([]string, error) {
	f.calls++
	return []string{"frame_000.png"}, nil
}
