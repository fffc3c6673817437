package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FillValue marks missing cells in the subsetted value array.
const FillValue = -32767.0

// Attribute is a named NetCDF attribute. Value holds one of string, []float64,
// []float32, []int32, []int16 or []int8.
type Attribute struct {
	Name  string
	Value any
}

// Attributes is an ordered attribute list as read from a dataset.
type Attributes []Attribute

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (any, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of the list with the named attributes dropped.
func (a Attributes) Without(names ...string) Attributes {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := make(Attributes, 0, len(a))
	for _, attr := range a {
		if !drop[attr.Name] {
			out = append(out, attr)
		}
	}
	return out
}

// Frame is one granule's windowed 2-D slice in [lat][lon] row-major order.
type Frame struct {
	NLat   int
	NLon   int
	Values []float64
}

// Accumulator collects frames along a growing time axis. The first appended
// frame fixes the (lat, lon) shape; the dense 3-D array is only built once,
// by Stack.
type Accumulator struct {
	nLat, nLon int
	frames     [][]float64
	timeStart  []string
	timeEnd    []string
}

// Append adds one time step.
func (a *Accumulator) Append(timeStart, timeEnd string, f Frame) error {
	if len(f.Values) != f.NLat*f.NLon {
		return fmt.Errorf("frame has %d values, expected %d×%d", len(f.Values), f.NLat, f.NLon)
	}
	if len(a.frames) == 0 {
		a.nLat, a.nLon = f.NLat, f.NLon
	} else if f.NLat != a.nLat || f.NLon != a.nLon {
		return fmt.Errorf("frame shape [%d, %d] does not match [%d, %d]", f.NLat, f.NLon, a.nLat, a.nLon)
	}
	a.frames = append(a.frames, f.Values)
	a.timeStart = append(a.timeStart, timeStart)
	a.timeEnd = append(a.timeEnd, timeEnd)
	return nil
}

// Len returns the number of appended time steps.
func (a *Accumulator) Len() int { return len(a.frames) }

// Stack returns the dense [time][lat][lon] array and the time coverage lists.
func (a *Accumulator) Stack() (values []float64, timeStart, timeEnd []string) {
	n := a.nLat * a.nLon
	values = make([]float64, 0, n*len(a.frames))
	for _, f := range a.frames {
		values = append(values, f...)
	}
	timeStart = append([]string(nil), a.timeStart...)
	timeEnd = append([]string(nil), a.timeEnd...)
	return values, timeStart, timeEnd
}

// SubsettedDataset is the result of a retrieval run: coordinate axes cut to
// the index window, a dense [time][lat][lon] array and per-step time coverage.
type SubsettedDataset struct {
	Lon       []float64
	Lat       []float64
	Values    []float64
	TimeStart []string
	TimeEnd   []string

	Keys   VariableKeyMap
	Window IndexWindow

	// Metadata copied from the first granule, for persistence.
	GlobalAttrs Attributes
	LonAttrs    Attributes
	LatAttrs    Attributes
	ValueAttrs  Attributes
}

// Shape returns (time, lat, lon).
func (d *SubsettedDataset) Shape() (int, int, int) {
	return len(d.TimeStart), len(d.Lat), len(d.Lon)
}

// Validate checks the shape invariants between axes, times and values.
func (d *SubsettedDataset) Validate() error {
	nt, nLat, nLon := d.Shape()
	if len(d.TimeEnd) != nt {
		return fmt.Errorf("time_end has %d entries, time_start has %d", len(d.TimeEnd), nt)
	}
	if len(d.Values) != nt*nLat*nLon {
		return fmt.Errorf("values has %d entries, expected %d×%d×%d", len(d.Values), nt, nLat, nLon)
	}
	return nil
}

// At returns the value at time step t, latitude row i, longitude column j.
func (d *SubsettedDataset) At(t, i, j int) float64 {
	_, nLat, nLon := d.Shape()
	return d.Values[(t*nLat+i)*nLon+j]
}

// Frame returns time step t as a lat×lon matrix sharing the backing array.
func (d *SubsettedDataset) Frame(t int) *mat.Dense {
	_, nLat, nLon := d.Shape()
	n := nLat * nLon
	return mat.NewDense(nLat, nLon, d.Values[t*n:(t+1)*n])
}

// Series returns the values at (i, j) for every time step.
func (d *SubsettedDataset) Series(i, j int) []float64 {
	nt, _, _ := d.Shape()
	out := make([]float64, nt)
	for t := range out {
		out[t] = d.At(t, i, j)
	}
	return out
}

// DataRange returns the minimum and maximum over valid cells, ignoring
// FillValue and NaN. ok is false when no valid cell exists.
func (d *SubsettedDataset) DataRange() (minVal, maxVal float64, ok bool) {
	valid := make([]float64, 0, len(d.Values))
	for _, v := range d.Values {
		if v == FillValue || math.IsNaN(v) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return 0, 0, false
	}
	return floats.Min(valid), floats.Max(valid), true
}

// SkippedGranule records a granule that contributed nothing to the result.
type SkippedGranule struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// RunReport summarizes a retrieval run so callers can see how many granules
// were requested, fetched and skipped.
type RunReport struct {
	RunID     string           `json:"run_id"`
	Requested int              `json:"requested"`
	Fetched   int              `json:"fetched"`
	Skipped   []SkippedGranule `json:"skipped"`
}

// Skip records a skipped granule.
func (r *RunReport) Skip(url string, err error) {
	r.Skipped = append(r.Skipped, SkippedGranule{URL: url, Reason: err.Error()})
}
