package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDateRange(t *testing.T) {
	got, err := ParseDateRange("AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := FileDateRange{
		StartYear: "2021", StartMonth: "11", StartDay: "01",
		EndYear: "2021", EndMonth: "11", EndDay: "30",
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestParseDateRange_AdjacentDigitRuns(t *testing.T) {
	// Sixteen consecutive digits split into two non-overlapping dates.
	got, err := ParseDateRange("X.2021120120211231.nc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Start() != "20211201" || got.End() != "20211231" {
		t.Errorf("expected 20211201/20211231, got %s/%s", got.Start(), got.End())
	}
}

func TestParseDateRange_Malformed(t *testing.T) {
	for _, name := range []string{"", "AQUA_MODIS.L3m.nc", "AQUA_MODIS.20211101.L3m.MO.CHL.nc", "A.2021110_2021113.nc"} {
		_, err := ParseDateRange(name)
		if !errors.Is(err, ErrMalformedFilename) {
			t.Errorf("%q: expected ErrMalformedFilename, got %v", name, err)
		}
		var ferr *FilenameError
		if errors.As(err, &ferr) && ferr.Filename != name {
			t.Errorf("%q: error names %q", name, ferr.Filename)
		}
	}
}

func TestParseDateRanges_PreservesOrder(t *testing.T) {
	names := []string{
		"AQUA_MODIS.20211201_20211231.L3m.MO.CHL.chlor_a.4km.nc",
		"AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc",
	}
	ranges, err := ParseDateRanges(names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 2 || ranges[0].StartMonth != "12" || ranges[1].StartMonth != "11" {
		t.Errorf("order not preserved: %+v", ranges)
	}

	if _, err := ParseDateRanges(append(names, "filelist.txt")); !errors.Is(err, ErrMalformedFilename) {
		t.Errorf("expected malformed entry to abort the batch, got %v", err)
	}
}

func TestBuildURLs(t *testing.T) {
	names := []string{
		"AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc",
		"AQUA_MODIS.20211201_20211231.L3m.MO.CHL.chlor_a.4km.nc",
	}
	urls, err := BuildURLs(DefaultSettings(), names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/L3SMI/2021/1101/AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc",
		"http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/L3SMI/2021/1201/AQUA_MODIS.20211201_20211231.L3m.MO.CHL.chlor_a.4km.nc",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("expected %v, got %v", want, urls)
	}

	again, err := BuildURLs(DefaultSettings(), names)
	if err != nil || !reflect.DeepEqual(urls, again) {
		t.Errorf("BuildURLs is not idempotent: %v vs %v (%v)", urls, again, err)
	}
}

func TestBuildURLs_UsesSettings(t *testing.T) {
	s := DefaultSettings()
	s.SpaceResolution = Resolution9km
	s.TimeResolution = PeriodEightDay

	urls, err := BuildURLs(s, []string{"AQUA_MODIS.20220101_20220108.L3m.8D.CHL.chlor_a.9km.nc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/L3SMI/2022/0101/AQUA_MODIS.20220101_20220108.L3m.8D.CHL.chlor_a.9km.nc"
	if urls[0] != want {
		t.Errorf("expected %s, got %s", want, urls[0])
	}
}

func TestBuildURLs_RejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.SpaceResolution = "1km"
	if _, err := BuildURLs(s, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildURLs_EmptyListing(t *testing.T) {
	urls, err := BuildURLs(DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no urls, got %v", urls)
	}
}

func TestGranuleName(t *testing.T) {
	if got := GranuleName("http://host/a/b/file.nc"); got != "file.nc" {
		t.Errorf("expected file.nc, got %s", got)
	}
	if got := GranuleName("file.nc"); got != "file.nc" {
		t.Errorf("expected file.nc, got %s", got)
	}
}
