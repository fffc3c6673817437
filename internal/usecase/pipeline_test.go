package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/oceancolor/internal/domain"
)

var testListing = []string{
	"AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc",
	"AQUA_MODIS.20211201_20211231.L3m.MO.CHL.chlor_a.4km.nc",
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeSearcher, *fakeSource, *fakeWriter, *fakeRenderer) {
	t.Helper()
	urls, err := domain.BuildURLs(domain.DefaultSettings(), testListing)
	if err != nil {
		t.Fatalf("BuildURLs: %v", err)
	}
	searcher := &fakeSearcher{names: testListing}
	src := newFakeSource(urls)
	writer := &fakeWriter{}
	renderer := &fakeRenderer{}
	p := NewPipeline(searcher, NewSubsetter(src, time.Second), writer, renderer, "/tmp/out")
	return p, searcher, src, writer, renderer
}

func TestPipeline_Execute(t *testing.T) {
	p, _, _, writer, renderer := newTestPipeline(t)

	result, err := p.Execute(context.Background(), RetrievalRequest{Settings: domain.DefaultSettings(), Save: true, Plot: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := uuid.Parse(result.RunID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", result.RunID, err)
	}
	if result.Report.RunID != result.RunID {
		t.Errorf("report run id %q does not match %q", result.Report.RunID, result.RunID)
	}
	if len(result.URLs) != 2 || result.Shape != [3]int{2, 35, 45} {
		t.Errorf("unexpected result urls=%d shape=%v", len(result.URLs), result.Shape)
	}

	wantPath := filepath.Join("/tmp/out", "AQUA_MODIS_CHL_4km_MO_202111_202112_-70_-25_-15_20.nc")
	if result.OutputPath != wantPath || writer.path != wantPath {
		t.Errorf("expected output %s, got %s (writer %s)", wantPath, result.OutputPath, writer.path)
	}
	if writer.ds != result.Dataset {
		t.Errorf("writer did not receive the subset")
	}
	if renderer.calls != 1 || len(result.PlotPaths) != 1 {
		t.Errorf("expected one render, got %d calls %v", renderer.calls, result.PlotPaths)
	}
}

func TestPipeline_ExecuteWithoutSaveOrPlot(t *testing.T) {
	p, _, _, writer, renderer := newTestPipeline(t)

	result, err := p.Execute(context.Background(), RetrievalRequest{Settings: domain.DefaultSettings()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.OutputPath != "" || writer.ds != nil || renderer.calls != 0 {
		t.Errorf("save/plot should be skipped")
	}
}

func TestPipeline_InvalidSettingsMakeNoCalls(t *testing.T) {
	p, searcher, src, _, _ := newTestPipeline(t)

	s := domain.DefaultSettings()
	s.SpaceResolution = "1km"
	_, err := p.Execute(context.Background(), RetrievalRequest{Settings: s})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if searcher.calls != 0 || len(src.opened) != 0 {
		t.Errorf("expected no collaborator calls, got search=%d opens=%d", searcher.calls, len(src.opened))
	}

	if _, err := p.URLs(context.Background(), s); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("URLs: expected ErrConfiguration, got %v", err)
	}
	if searcher.calls != 0 {
		t.Errorf("URLs should not search with invalid settings")
	}
}

func TestPipeline_EmptyListing(t *testing.T) {
	p, searcher, _, _, _ := newTestPipeline(t)
	searcher.names = nil

	_, err := p.Execute(context.Background(), RetrievalRequest{Settings: domain.DefaultSettings()})
	if !errors.Is(err, domain.ErrNoGranules) {
		t.Errorf("expected ErrNoGranules, got %v", err)
	}
}

func TestPipeline_MalformedListingAborts(t *testing.T) {
	p, searcher, src, _, _ := newTestPipeline(t)
	searcher.names = append(searcher.names, "README.txt")

	_, err := p.Execute(context.Background(), RetrievalRequest{Settings: domain.DefaultSettings()})
	if !errors.Is(err, domain.ErrMalformedFilename) {
		t.Errorf("expected ErrMalformedFilename, got %v", err)
	}
	if len(src.opened) != 0 {
		t.Errorf("no granule should be opened, got %v", src.opened)
	}
}

func TestPipeline_SearchFailure(t *testing.T) {
	p, searcher, _, _, _ := newTestPipeline(t)
	searcher.err = domain.ErrSourceUnreachable

	if _, err := p.URLs(context.Background(), domain.DefaultSettings()); !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Errorf("expected ErrSourceUnreachable, got %v", err)
	}
}

func TestPipeline_URLs(t *testing.T) {
	p, _, _, _, _ := newTestPipeline(t)

	urls, err := p.URLs(context.Background(), domain.DefaultSettings())
	if err != nil {
		t.Fatalf("URLs: %v", err)
	}
	want := "http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/L3SMI/2021/1101/AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc"
	if len(urls) != 2 || urls[0] != want {
		t.Errorf("unexpected urls %v", urls)
	}
}

func TestPipeline_ReportOnSubsetFailure(t *testing.T) {
	p, _, src, _, _ := newTestPipeline(t)
	for url := range src.granules {
		src.unreachable[url] = true
	}

	result, err := p.Execute(context.Background(), RetrievalRequest{Settings: domain.DefaultSettings()})
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Fatalf("expected ErrSourceUnreachable, got %v", err)
	}
	if result == nil || result.Report == nil || result.Report.Requested != 2 {
		t.Errorf("expected a partial result with the report, got %+v", result)
	}
}
