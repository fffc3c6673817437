// Package opendap reads Level-3 mapped granules through libnetcdf, which
// opens OPeNDAP URLs and local NetCDF paths alike.
package opendap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/oceancolor/internal/adapter/store"
	"go.ngs.io/oceancolor/internal/domain"
)

var errUnsupportedType = errors.New("unsupported attribute type")

// Source opens granules with netcdf.OpenFile.
type Source struct{}

// NewSource creates a new OPeNDAP granule source.
func NewSource() *Source {
	return &Source{}
}

type openResult struct {
	nc  netcdf.Dataset
	err error
}

// Open opens the granule at url. The libnetcdf call cannot be interrupted, so
// it runs in its own goroutine; if ctx expires first the handle is closed as
// soon as the open completes. An abandoned open keeps the libnetcdf lock
// until it returns, so later opens wait on it under their own deadline.
func (s *Source) Open(ctx context.Context, url string) (store.Granule, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GranuleError{URL: url, Err: err}
	}

	done := make(chan openResult, 1)
	go func() {
		unlock := store.LockNetCDF()
		nc, err := netcdf.OpenFile(url, netcdf.NOWRITE)
		unlock()
		done <- openResult{nc: nc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &domain.GranuleError{URL: url, Err: fmt.Errorf("failed to open NetCDF dataset: %w", r.err)}
		}
		return &Dataset{url: url, nc: r.nc}, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				defer store.LockNetCDF()()
				_ = r.nc.Close()
			}
		}()
		return nil, &domain.GranuleError{URL: url, Err: ctx.Err()}
	}
}

// Dataset is an open granule.
type Dataset struct {
	url string
	nc  netcdf.Dataset
}

// VarNames lists every variable in the dataset in file order.
func (d *Dataset) VarNames() ([]string, error) {
	defer store.LockNetCDF()()
	n, err := d.nc.NVars()
	if err != nil {
		return nil, fmt.Errorf("failed to count variables: %w", err)
	}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := d.nc.VarN(i).Name()
		if err != nil {
			return nil, fmt.Errorf("failed to read name of variable %d: %w", i, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// ReadAxis reads a 1-D coordinate variable as float64.
func (d *Dataset) ReadAxis(name string) ([]float64, error) {
	defer store.LockNetCDF()()
	v, err := d.nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	data, err := readFloat64Var(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// ReadWindow reads the value variable over the index window as a [lat][lon]
// frame. The variable may be stored [lat, lon] or [lon, lat], optionally
// behind singleton leading dimensions such as time=1. Packed values are
// unpacked with scale_factor/add_offset.
//
//nolint:gocyclo // Dimension detection plus per-type reads.
func (d *Dataset) ReadWindow(keys domain.VariableKeyMap, w domain.IndexWindow) (domain.Frame, error) {
	if w.Empty() {
		return domain.Frame{}, fmt.Errorf("%w: %+v", domain.ErrEmptyWindow, w)
	}
	defer store.LockNetCDF()()

	latDim, nLat, err := d.axisDim(keys.Lat)
	if err != nil {
		return domain.Frame{}, err
	}
	lonDim, nLon, err := d.axisDim(keys.Lon)
	if err != nil {
		return domain.Frame{}, err
	}

	dataVar, err := d.nc.Var(keys.Value)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to find variable %s: %w", keys.Value, err)
	}
	dims, err := dataVar.Dims()
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) < 2 {
		return domain.Frame{}, fmt.Errorf("expected at least 2D data, got %dD", len(dims))
	}
	lead := len(dims) - 2
	for i := 0; i < lead; i++ {
		n, err := dims[i].Len()
		if err != nil {
			return domain.Frame{}, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		if n != 1 {
			return domain.Frame{}, fmt.Errorf("leading dimension %d has length %d, expected 1", i, n)
		}
	}
	dim0Len, err := dims[lead].Len()
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to get dim%d length: %w", lead, err)
	}
	dim1Len, err := dims[lead+1].Len()
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to get dim%d length: %w", lead+1, err)
	}
	dim0Name, _ := dims[lead].Name()
	dim1Name, _ := dims[lead+1].Name()

	// Determine dimension ordering: by name when the axes carry their own
	// dimension, otherwise by length.
	type dimOrder int
	const (
		latLonOrder dimOrder = iota
		lonLatOrder
		unknownOrder
	)

	order := unknownOrder
	switch {
	case latDim != "" && dim0Name == latDim && dim1Name == lonDim:
		order = latLonOrder
	case latDim != "" && dim0Name == lonDim && dim1Name == latDim:
		order = lonLatOrder
	case dim0Len == nLat && dim1Len == nLon:
		order = latLonOrder
	case dim0Len == nLon && dim1Len == nLat:
		order = lonLatOrder
	}

	var values [][]float64
	switch order {
	case latLonOrder:
		values, err = read2DFloat64VarSubset(dataVar, lead, w.LatLow, w.LonLow, w.NLat(), w.NLon())
	case lonLatOrder:
		var transposed [][]float64
		transposed, err = read2DFloat64VarSubset(dataVar, lead, w.LonLow, w.LatLow, w.NLon(), w.NLat())
		if err == nil {
			values = transpose2D(transposed)
		}
	case unknownOrder:
		return domain.Frame{}, fmt.Errorf("dimension mismatch: data is [%d, %d], expected [%d, %d] or [%d, %d]",
			dim0Len, dim1Len, nLat, nLon, nLon, nLat)
	}
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to read %s: %w", keys.Value, err)
	}

	fill, hasFill := getFillValue(dataVar)
	scale, offset := getPacking(dataVar)

	frame := domain.Frame{NLat: w.NLat(), NLon: w.NLon(), Values: make([]float64, 0, w.NLat()*w.NLon())}
	for _, row := range values {
		for _, raw := range row {
			if math.IsNaN(raw) || (hasFill && raw == fill) {
				frame.Values = append(frame.Values, domain.FillValue)
				continue
			}
			frame.Values = append(frame.Values, raw*scale+offset)
		}
	}
	return frame, nil
}

// axisDim returns the dimension name and length of a 1-D coordinate variable.
func (d *Dataset) axisDim(name string) (string, uint64, error) {
	v, err := d.nc.Var(name)
	if err != nil {
		return "", 0, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get dimensions of %s: %w", name, err)
	}
	if len(dims) != 1 {
		return "", 0, fmt.Errorf("expected 1D variable %s, got %dD", name, len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get length of %s: %w", name, err)
	}
	dimName, _ := dims[0].Name()
	return dimName, n, nil
}

// GlobalAttr returns a global text attribute such as time_coverage_start.
func (d *Dataset) GlobalAttr(name string) (string, error) {
	defer store.LockNetCDF()()
	value, err := readAttrValue(d.nc.Attr(name))
	if err != nil {
		return "", fmt.Errorf("failed to read global attribute %s: %w", name, err)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("global attribute %s is not text", name)
	}
	return text, nil
}

// GlobalAttrs returns every global attribute of a supported type in file order.
func (d *Dataset) GlobalAttrs() (domain.Attributes, error) {
	defer store.LockNetCDF()()
	n, err := d.nc.NAttrs()
	if err != nil {
		return nil, fmt.Errorf("failed to count global attributes: %w", err)
	}
	return collectAttrs(n, d.nc.AttrN)
}

// VarAttrs returns every attribute of the named variable in file order.
func (d *Dataset) VarAttrs(name string) (domain.Attributes, error) {
	defer store.LockNetCDF()()
	v, err := d.nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	n, err := v.NAttrs()
	if err != nil {
		return nil, fmt.Errorf("failed to count attributes of %s: %w", name, err)
	}
	return collectAttrs(n, v.AttrN)
}

// Close releases the dataset handle.
func (d *Dataset) Close() error {
	defer store.LockNetCDF()()
	if err := d.nc.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", d.url, err)
	}
	return nil
}

func collectAttrs(n int, attrN func(int) (netcdf.Attr, error)) (domain.Attributes, error) {
	attrs := make(domain.Attributes, 0, n)
	for i := 0; i < n; i++ {
		a, err := attrN(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute %d: %w", i, err)
		}
		value, err := readAttrValue(a)
		if errors.Is(err, errUnsupportedType) {
			// 64-bit and string attributes are not carried over.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute %s: %w", a.Name(), err)
		}
		attrs = append(attrs, domain.Attribute{Name: a.Name(), Value: value})
	}
	return attrs, nil
}

// readAttrValue reads an attribute into string, []float64, []float32,
// []int32, []int16 or []int8.
func readAttrValue(a netcdf.Attr) (any, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	t, err := a.Type()
	if err != nil {
		return nil, err
	}

	switch t {
	case netcdf.CHAR:
		buf := make([]byte, n)
		if err := a.ReadBytes(buf); err != nil {
			return nil, err
		}
		return strings.TrimRight(string(buf), "\x00"), nil
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if err := a.ReadFloat64s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := a.ReadFloat32s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case netcdf.INT:
		buf := make([]int32, n)
		if err := a.ReadInt32s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := a.ReadInt16s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case netcdf.BYTE:
		buf := make([]int8, n)
		if err := a.ReadInt8s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: %v", errUnsupportedType, t)
	}
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if val, ok := readScalarAttr(v, name); ok {
			return val, true
		}
	}
	return 0, false
}

// getPacking returns scale_factor and add_offset, defaulting to 1 and 0.
func getPacking(v netcdf.Var) (scale, offset float64) {
	scale, offset = 1, 0
	if s, ok := readScalarAttr(v, "scale_factor"); ok && s != 0 {
		scale = s
	}
	if o, ok := readScalarAttr(v, "add_offset"); ok {
		offset = o
	}
	return scale, offset
}

func readScalarAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	value, err := readAttrValue(a)
	if err != nil {
		return 0, false
	}
	switch vals := value.(type) {
	case []float64:
		return vals[0], true
	case []float32:
		return float64(vals[0]), true
	case []int32:
		return float64(vals[0]), true
	case []int16:
		return float64(vals[0]), true
	case []int8:
		return float64(vals[0]), true
	}
	return 0, false
}

// readFloat64Var reads a 1D float64 array from a NetCDF variable.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}

	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, length)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, length)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT:
		tmp := make([]int32, length)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.SHORT:
		tmp := make([]int16, length)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

// read2DFloat64VarSubset reads a [nRows, nCols] hyperslab starting at
// [startRow, startCol]. lead singleton dimensions precede the two grid
// dimensions and are read at index 0.
func read2DFloat64VarSubset(v netcdf.Var, lead, startRow, startCol, nRows, nCols int) ([][]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	start := make([]uint64, lead, lead+2)
	count := make([]uint64, lead, lead+2)
	for i := range count {
		count[i] = 1
	}
	//nolint:gosec // G115: window indices are non-negative.
	start = append(start, uint64(startRow), uint64(startCol))
	//nolint:gosec // G115: window sizes are non-negative.
	count = append(count, uint64(nRows), uint64(nCols))

	totalSize := nRows * nCols
	var flatData []float64

	switch varType {
	case netcdf.DOUBLE:
		flatData = make([]float64, totalSize)
		if err := v.ReadFloat64Slice(flatData, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		float32Data := make([]float32, totalSize)
		if err := v.ReadFloat32Slice(float32Data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		flatData = widen(float32Data)
	case netcdf.SHORT:
		int16Data := make([]int16, totalSize)
		if err := v.ReadInt16Slice(int16Data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		flatData = widen(int16Data)
	case netcdf.INT:
		int32Data := make([]int32, totalSize)
		if err := v.ReadInt32Slice(int32Data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		flatData = widen(int32Data)
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}

	values := make([][]float64, nRows)
	for i := 0; i < nRows; i++ {
		values[i] = flatData[i*nCols : (i+1)*nCols]
	}
	return values, nil
}

func widen[T float32 | int32 | int16](src []T) []float64 {
	out := make([]float64, len(src))
	for i, val := range src {
		out[i] = float64(val)
	}
	return out
}

// transpose2D transposes a 2D array.
func transpose2D(data [][]float64) [][]float64 {
	if len(data) == 0 {
		return data
	}

	nRows := len(data)
	nCols := len(data[0])

	transposed := make([][]float64, nCols)
	for i := 0; i < nCols; i++ {
		transposed[i] = make([]float64, nRows)
		for j := 0; j < nRows; j++ {
			transposed[i][j] = data[j][i]
		}
	}

	return transposed
}
