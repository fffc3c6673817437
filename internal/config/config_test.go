package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"go.ngs.io/oceancolor/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oceancolor.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultSettingsAreValid(t *testing.T) {
	s, err := Default().Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s != domain.DefaultSettings() {
		t.Errorf("default config does not match default settings: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
output_dir = "/srv/subsets"
granule_timeout = "45s"

[retrieval]
date_min = "2020-01-01 00:00:00"
date_max = "2020-03-01 00:00:00"
time_resolution = "8D"
bounding_box = [10.0, 20.0, -5.0, 5.0]

[plot]
enabled = true
point_lon = 15.0
point_lat = 0.5

[server]
cors_origins = ["https://example.org"]
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OutputDir != "/srv/subsets" || c.GranuleTimeout.Duration != 45*time.Second {
		t.Errorf("unexpected top-level values %+v", c)
	}
	// Unset keys keep their defaults.
	if c.DataDir != "./data" || c.SearchTimeout.Duration != time.Minute || c.Server.Port != "8080" {
		t.Errorf("defaults not preserved: %+v", c)
	}
	if !c.Plot.Enabled || c.Plot.PointLon == nil || *c.Plot.PointLon != 15 || *c.Plot.PointLat != 0.5 {
		t.Errorf("unexpected plot section %+v", c.Plot)
	}
	if len(c.Server.CORSOrigins) != 1 {
		t.Errorf("unexpected cors origins %v", c.Server.CORSOrigins)
	}

	s, err := c.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.TimeResolution != domain.PeriodEightDay || s.SpaceResolution != domain.Resolution4km {
		t.Errorf("unexpected resolutions %s %s", s.SpaceResolution, s.TimeResolution)
	}
	if s.BoundingBox != (domain.BoundingBox{LonMin: 10, LonMax: 20, LatMin: -5, LatMax: 5}) {
		t.Errorf("unexpected bounding box %v", s.BoundingBox)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, `granule_timeout = "soon"`)); err == nil {
		t.Errorf("expected error for bad duration")
	}
	_, err := Load(writeConfig(t, "[retrieval]\ncolour = \"blue\"\n"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown key, got %v", err)
	}
}

func TestSettings_BoundingBoxLength(t *testing.T) {
	c := Default()
	c.Retrieval.BoundingBox = []float64{1, 2, 3}

	_, err := c.Settings()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "bounding_box" {
		t.Errorf("expected bounding_box validation error, got %v", err)
	}
}

func TestFlags_Apply(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	err := fs.Parse([]string{
		"--time-resolution", "DAY",
		"--bbox", "-10,10,-20,20",
		"--granule-timeout", "5s",
		"--plot",
		"--point", "1.5,-2.5",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	c := Default()
	c.OutputDir = "/from/file"
	if err := flags.Apply(&c); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Retrieval.TimeResolution != "DAY" || c.GranuleTimeout.Duration != 5*time.Second {
		t.Errorf("flags not applied: %+v", c)
	}
	if len(c.Retrieval.BoundingBox) != 4 || c.Retrieval.BoundingBox[0] != -10 {
		t.Errorf("unexpected bbox %v", c.Retrieval.BoundingBox)
	}
	if !c.Plot.Enabled || *c.Plot.PointLon != 1.5 || *c.Plot.PointLat != -2.5 {
		t.Errorf("unexpected plot %+v", c.Plot)
	}
	// Unset flags leave file values alone.
	if c.OutputDir != "/from/file" {
		t.Errorf("output dir overwritten: %s", c.OutputDir)
	}
}

func TestFlags_BadPoint(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"--point", "1,2,3"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := Default()
	if err := flags.Apply(&c); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestParsePoint(t *testing.T) {
	lon, lat, err := ParsePoint("-45.5, 12")
	if err != nil || lon != -45.5 || lat != 12 {
		t.Errorf("ParsePoint = %v, %v, %v", lon, lat, err)
	}
	for _, bad := range []string{"", "1", "1,2,3", "x,2", "1,y"} {
		if _, _, err := ParsePoint(bad); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("ParsePoint(%q): expected configuration error, got %v", bad, err)
		}
	}
}
