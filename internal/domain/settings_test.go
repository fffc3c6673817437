package domain

import (
	"errors"
	"testing"
)

func TestValidate_DefaultSettings(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings should be valid, got %v", err)
	}
}

// TestValidate_RejectsInvalidFields checks that each field is reported by name.
func TestValidate_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*RetrievalSettings)
		field string
	}{
		{"date_min layout", func(s *RetrievalSettings) { s.DateMin = "2021-11-01" }, "date_min"},
		{"date_max layout", func(s *RetrievalSettings) { s.DateMax = "01/01/2022 00:00:00" }, "date_max"},
		{"date order", func(s *RetrievalSettings) { s.DateMin, s.DateMax = s.DateMax, s.DateMin }, "date_max"},
		{"space resolution", func(s *RetrievalSettings) { s.SpaceResolution = "1km" }, "space_resolution"},
		{"time resolution", func(s *RetrievalSettings) { s.TimeResolution = "WK" }, "time_resolution"},
		{"source", func(s *RetrievalSettings) { s.Source = "TERRA_MODIS" }, "source"},
		{"base url", func(s *RetrievalSettings) { s.BaseURL = "http://example.com/opendap/" }, "base_url"},
		{"level", func(s *RetrievalSettings) { s.Level = "L2" }, "level"},
		{"map bin", func(s *RetrievalSettings) { s.MapBin = "b" }, "map_bin"},
		{"variable", func(s *RetrievalSettings) { s.Variable = "SST" }, "variable"},
		{"lon_min", func(s *RetrievalSettings) { s.BoundingBox.LonMin = -200 }, "bounding_box.lon_min"},
		{"lon_max", func(s *RetrievalSettings) { s.BoundingBox.LonMax = 181 }, "bounding_box.lon_max"},
		{"lat_min", func(s *RetrievalSettings) { s.BoundingBox.LatMin = -90.5 }, "bounding_box.lat_min"},
		{"lat_max", func(s *RetrievalSettings) { s.BoundingBox.LatMax = 95 }, "bounding_box.lat_max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(&s)

			err := s.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

// TestValidate_FirstViolationWins checks that reporting is deterministic.
func TestValidate_FirstViolationWins(t *testing.T) {
	s := DefaultSettings()
	s.SpaceResolution = "1km"
	s.BoundingBox.LonMin = -200

	var verr *ValidationError
	if !errors.As(s.Validate(), &verr) {
		t.Fatalf("expected *ValidationError")
	}
	if verr.Field != "space_resolution" {
		t.Errorf("expected space_resolution to be reported first, got %s", verr.Field)
	}
}

func TestValidate_BoundingBoxEdgesInclusive(t *testing.T) {
	s := DefaultSettings()
	s.BoundingBox = BoundingBox{LonMin: -180, LonMax: 180, LatMin: -90, LatMax: 90}
	if err := s.Validate(); err != nil {
		t.Errorf("edges should be accepted, got %v", err)
	}
}

func TestNewBoundingBox(t *testing.T) {
	box, err := NewBoundingBox([]float64{-70, -25, -15, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BoundingBox{LonMin: -70, LonMax: -25, LatMin: -15, LatMax: 20}
	if box != want {
		t.Errorf("expected %v, got %v", want, box)
	}

	for _, coords := range [][]float64{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		if _, err := NewBoundingBox(coords); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%v: expected ErrConfiguration, got %v", coords, err)
		}
	}
}

func TestGetCatalog(t *testing.T) {
	c := GetCatalog()
	if len(c.SpaceResolutions) != 2 || len(c.TimeResolutions) != 4 {
		t.Errorf("unexpected resolutions: %v %v", c.SpaceResolutions, c.TimeResolutions)
	}
	if len(c.Sources) != 1 || c.Sources[0].Name != "AQUA_MODIS" {
		t.Errorf("unexpected sources: %+v", c.Sources)
	}
	if len(c.Variables) != 1 || c.Variables[0].Field != "chlor_a" {
		t.Errorf("unexpected variables: %+v", c.Variables)
	}
}
