package domain

import (
	"fmt"
	"math"
)

// FindNearest returns the index and value of the axis element closest to
// target. Ties resolve to the first minimizer in axis order. The axis may be
// ascending, descending or unsorted; NaN elements are never selected.
func FindNearest(axis []float64, target float64) (int, float64, error) {
	if len(axis) == 0 {
		return 0, 0, fmt.Errorf("%w: empty coordinate axis", ErrInvalidInput)
	}

	best := -1
	bestDist := math.Inf(1)
	for i, v := range axis {
		d := math.Abs(v - target)
		if math.IsNaN(d) {
			continue
		}
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return 0, 0, fmt.Errorf("%w: coordinate axis has no finite values near %g", ErrInvalidInput, target)
	}
	return best, axis[best], nil
}

// IndexWindow is a half-open index range [Low, High) into the original,
// unsubset coordinate axes. Low <= High always holds on both axes.
type IndexWindow struct {
	LonLow  int `json:"lon_low"`
	LonHigh int `json:"lon_high"`
	LatLow  int `json:"lat_low"`
	LatHigh int `json:"lat_high"`
}

// NLon returns the number of longitude columns in the window.
func (w IndexWindow) NLon() int { return w.LonHigh - w.LonLow }

// NLat returns the number of latitude rows in the window.
func (w IndexWindow) NLat() int { return w.LatHigh - w.LatLow }

// Empty reports whether the window selects no cells.
func (w IndexWindow) Empty() bool { return w.NLon() <= 0 || w.NLat() <= 0 }

// ComputeIndexWindow locates the four bounding-box edges on the given axes.
// Each pair is sorted so the window is valid whether an axis increases or
// decreases (L3 mapped latitude runs north to south).
func ComputeIndexWindow(lon, lat []float64, box BoundingBox) (IndexWindow, error) {
	lonLow, _, err := FindNearest(lon, normalizeLonForAxis(lon, box.LonMin))
	if err != nil {
		return IndexWindow{}, fmt.Errorf("failed to locate lon_min: %w", err)
	}
	lonHigh, _, err := FindNearest(lon, normalizeLonForAxis(lon, box.LonMax))
	if err != nil {
		return IndexWindow{}, fmt.Errorf("failed to locate lon_max: %w", err)
	}
	latLow, _, err := FindNearest(lat, box.LatMin)
	if err != nil {
		return IndexWindow{}, fmt.Errorf("failed to locate lat_min: %w", err)
	}
	latHigh, _, err := FindNearest(lat, box.LatMax)
	if err != nil {
		return IndexWindow{}, fmt.Errorf("failed to locate lat_max: %w", err)
	}

	// Ensure proper ordering (low <= high).
	if lonLow > lonHigh {
		lonLow, lonHigh = lonHigh, lonLow
	}
	if latLow > latHigh {
		latLow, latHigh = latHigh, latLow
	}

	return IndexWindow{LonLow: lonLow, LonHigh: lonHigh, LatLow: latLow, LatHigh: latHigh}, nil
}

// SliceAxis copies axis[low:high].
func SliceAxis(axis []float64, low, high int) []float64 {
	out := make([]float64, high-low)
	copy(out, axis[low:high])
	return out
}

// lonAxisRequiresWrap reports whether a longitude axis uses the 0..360 convention.
func lonAxisRequiresWrap(lons []float64) bool {
	if len(lons) == 0 {
		return false
	}
	minVal := lons[0]
	maxVal := lons[len(lons)-1]
	if minVal > maxVal {
		minVal, maxVal = maxVal, minVal
	}
	return minVal >= 0 && maxVal > 180
}

// normalizeLonForAxis maps a -180..180 longitude onto the axis convention.
func normalizeLonForAxis(lons []float64, lon float64) float64 {
	if !lonAxisRequiresWrap(lons) {
		return lon
	}
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}
