// Package domain holds the ocean-color retrieval model: settings and their
// validation, granule filename dates, access URL construction, coordinate
// windows, variable key resolution and the subsetted dataset.
package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the canonical timestamp layout for date_min/date_max.
const DateLayout = "2006-01-02 15:04:05"

// SpaceResolution is the spatial resolution of a Level-3 mapped product.
type SpaceResolution string

// Supported spatial resolutions.
const (
	Resolution4km SpaceResolution = "4km"
	Resolution9km SpaceResolution = "9km"
)

// TimeResolution is the compositing period of a Level-3 mapped product.
type TimeResolution string

// Supported compositing periods.
const (
	PeriodAnnual   TimeResolution = "YR"
	PeriodMonthly  TimeResolution = "MO"
	PeriodEightDay TimeResolution = "8D"
	PeriodDaily    TimeResolution = "DAY"
)

// SourceProduct describes a sensor as known to the OceanData archive.
type SourceProduct struct {
	Name          string `json:"name"`
	SensorID      int    `json:"sensor_id"`       // file_search sensor_id.
	DatasetTypeID int    `json:"dataset_type_id"` // file_search dtid.
	BaseURL       string `json:"base_url"`        // OPeNDAP root for the sensor.
}

// VariableProduct describes a geophysical suite and the variable it carries.
type VariableProduct struct {
	Name        string `json:"name"`         // Suite name used in filenames, e.g. "CHL".
	Field       string `json:"field"`        // NetCDF variable name, e.g. "chlor_a".
	SearchID    string `json:"search_id"`    // file_search prod_id.
	KeyFragment string `json:"key_fragment"` // Substring used when the exact name is absent.
}

var (
	spaceResolutions = []SpaceResolution{Resolution4km, Resolution9km}
	timeResolutions  = []TimeResolution{PeriodAnnual, PeriodMonthly, PeriodEightDay, PeriodDaily}
	levels           = []string{"L3"}
	mapBins          = []string{"m"}

	sourceProducts = map[string]SourceProduct{
		"AQUA_MODIS": {
			Name:          "AQUA_MODIS",
			SensorID:      7,
			DatasetTypeID: 1043,
			BaseURL:       "http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/",
		},
	}

	variableProducts = map[string]VariableProduct{
		"CHL": {
			Name:        "CHL",
			Field:       "chlor_a",
			SearchID:    "chlor_a",
			KeyFragment: "chl",
		},
	}
)

// Catalog lists every enumerated settings value.
type Catalog struct {
	SpaceResolutions []SpaceResolution `json:"space_resolutions"`
	TimeResolutions  []TimeResolution  `json:"time_resolutions"`
	Levels           []string          `json:"levels"`
	MapBins          []string          `json:"map_bins"`
	Sources          []SourceProduct   `json:"sources"`
	Variables        []VariableProduct `json:"variables"`
}

// GetCatalog returns the supported enumerations in a stable order.
func GetCatalog() Catalog {
	c := Catalog{
		SpaceResolutions: append([]SpaceResolution(nil), spaceResolutions...),
		TimeResolutions:  append([]TimeResolution(nil), timeResolutions...),
		Levels:           append([]string(nil), levels...),
		MapBins:          append([]string(nil), mapBins...),
	}
	for _, s := range sourceProducts {
		c.Sources = append(c.Sources, s)
	}
	sort.Slice(c.Sources, func(i, j int) bool { return c.Sources[i].Name < c.Sources[j].Name })
	for _, v := range variableProducts {
		c.Variables = append(c.Variables, v)
	}
	sort.Slice(c.Variables, func(i, j int) bool { return c.Variables[i].Name < c.Variables[j].Name })
	return c
}

// BoundingBox is the (lon_min, lon_max, lat_min, lat_max) subset rectangle.
type BoundingBox struct {
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
}

// NewBoundingBox builds a box from a (lon_min, lon_max, lat_min, lat_max) list.
func NewBoundingBox(coords []float64) (BoundingBox, error) {
	if len(coords) != 4 {
		return BoundingBox{}, &ValidationError{
			Field:  "bounding_box",
			Value:  fmt.Sprint(coords),
			Reason: fmt.Sprintf("must have exactly 4 members (lon_min, lon_max, lat_min, lat_max), got %d", len(coords)),
		}
	}
	return BoundingBox{LonMin: coords[0], LonMax: coords[1], LatMin: coords[2], LatMax: coords[3]}, nil
}

// Slice returns the box as a (lon_min, lon_max, lat_min, lat_max) list.
func (b BoundingBox) Slice() []float64 {
	return []float64{b.LonMin, b.LonMax, b.LatMin, b.LatMax}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", b.LonMin, b.LonMax, b.LatMin, b.LatMax)
}

// RetrievalSettings describes one retrieval run. It is a value type: once
// validated it is passed around by copy and never mutated.
type RetrievalSettings struct {
	DateMin         string          `json:"date_min"`
	DateMax         string          `json:"date_max"`
	SpaceResolution SpaceResolution `json:"space_resolution"`
	TimeResolution  TimeResolution  `json:"time_resolution"`
	BaseURL         string          `json:"base_url"`
	Level           string          `json:"level"`
	MapBin          string          `json:"map_bin"`
	Source          string          `json:"source"`
	Variable        string          `json:"variable"`
	BoundingBox     BoundingBox     `json:"bounding_box"`
}

// DefaultSettings returns the MODIS-Aqua monthly 4km chlorophyll settings.
func DefaultSettings() RetrievalSettings {
	return RetrievalSettings{
		DateMin:         "2021-11-01 00:00:00",
		DateMax:         "2022-01-01 00:00:00",
		SpaceResolution: Resolution4km,
		TimeResolution:  PeriodMonthly,
		BaseURL:         sourceProducts["AQUA_MODIS"].BaseURL,
		Level:           "L3",
		MapBin:          "m",
		Source:          "AQUA_MODIS",
		Variable:        "CHL",
		BoundingBox:     BoundingBox{LonMin: -70, LonMax: -25, LatMin: -15, LatMax: 20},
	}
}

// Validate checks every field against its domain and returns the first
// violation as a *ValidationError. Fields are checked in a fixed order.
func (s RetrievalSettings) Validate() error {
	dateMin, err := time.Parse(DateLayout, s.DateMin)
	if err != nil {
		return &ValidationError{Field: "date_min", Value: s.DateMin, Reason: "must use the " + DateLayout + " layout"}
	}
	dateMax, err := time.Parse(DateLayout, s.DateMax)
	if err != nil {
		return &ValidationError{Field: "date_max", Value: s.DateMax, Reason: "must use the " + DateLayout + " layout"}
	}
	if dateMax.Before(dateMin) {
		return &ValidationError{Field: "date_max", Value: s.DateMax, Reason: "must not be before date_min " + s.DateMin}
	}

	if !slices.Contains(spaceResolutions, s.SpaceResolution) {
		return &ValidationError{Field: "space_resolution", Value: string(s.SpaceResolution), Reason: fmt.Sprintf("must be one of %v", spaceResolutions)}
	}
	if !slices.Contains(timeResolutions, s.TimeResolution) {
		return &ValidationError{Field: "time_resolution", Value: string(s.TimeResolution), Reason: fmt.Sprintf("must be one of %v", timeResolutions)}
	}

	source, ok := sourceProducts[s.Source]
	if !ok {
		return &ValidationError{Field: "source", Value: s.Source, Reason: fmt.Sprintf("must be one of %v", sortedKeys(sourceProducts))}
	}
	if s.BaseURL != source.BaseURL {
		return &ValidationError{Field: "base_url", Value: s.BaseURL, Reason: fmt.Sprintf("must be %q for source %s", source.BaseURL, source.Name)}
	}
	if !slices.Contains(levels, s.Level) {
		return &ValidationError{Field: "level", Value: s.Level, Reason: fmt.Sprintf("must be one of %v", levels)}
	}
	if !slices.Contains(mapBins, s.MapBin) {
		return &ValidationError{Field: "map_bin", Value: s.MapBin, Reason: fmt.Sprintf("must be one of %v", mapBins)}
	}
	if _, ok := variableProducts[s.Variable]; !ok {
		return &ValidationError{Field: "variable", Value: s.Variable, Reason: fmt.Sprintf("must be one of %v", sortedKeys(variableProducts))}
	}

	return s.BoundingBox.validate()
}

func (b BoundingBox) validate() error {
	lons := []struct {
		name string
		v    float64
	}{{"lon_min", b.LonMin}, {"lon_max", b.LonMax}}
	for _, l := range lons {
		if !(l.v >= -180 && l.v <= 180) {
			return &ValidationError{Field: "bounding_box." + l.name, Value: formatFloat(l.v), Reason: "longitude must be between -180 and 180"}
		}
	}
	lats := []struct {
		name string
		v    float64
	}{{"lat_min", b.LatMin}, {"lat_max", b.LatMax}}
	for _, l := range lats {
		if !(l.v >= -90 && l.v <= 90) {
			return &ValidationError{Field: "bounding_box." + l.name, Value: formatFloat(l.v), Reason: "latitude must be between -90 and 90"}
		}
	}
	return nil
}

// SourceProduct returns the source description. Settings must be valid.
func (s RetrievalSettings) SourceProduct() SourceProduct {
	return sourceProducts[s.Source]
}

// VariableProduct returns the variable description. Settings must be valid.
func (s RetrievalSettings) VariableProduct() VariableProduct {
	return variableProducts[s.Variable]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
