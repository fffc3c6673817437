// Package ncfile persists subsetted datasets as NetCDF-4 files.
package ncfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"gonum.org/v1/gonum/floats"

	"go.ngs.io/oceancolor/internal/adapter/store"
	"go.ngs.io/oceancolor/internal/domain"
)

// TimeStringLen is the width of the time_start/time_end character arrays.
const TimeStringLen = 24

// valueVarName is the name of the subsetted value variable in output files.
const valueVarName = "chl"

// recomputedAttrs are global attributes describing the source granule's
// extent or provenance. They are not copied; the writer derives them from the
// subset instead.
var recomputedAttrs = []string{
	"date_created",
	"time_coverage_start",
	"time_coverage_end",
	"start_orbit_number",
	"northernmost_latitude",
	"southernmost_latitude",
	"westernmost_longitude",
	"easternmost_longitude",
	"geospatial_lat_max",
	"geospatial_lat_min",
	"geospatial_lon_max",
	"geospatial_lon_min",
	"sw_point_latitude",
	"sw_point_longitude",
	"number_of_lines",
	"number_of_columns",
	"_lastModified",
	"data_minimum",
	"data_maximum",
}

// Writer writes SubsettedDatasets.
type Writer struct {
	now func() time.Time
}

// NewWriter creates a new NetCDF-4 writer.
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// Filename returns the conventional output name, e.g.
// "AQUA_MODIS_CHL_4km_MO_202111_202112_-70_-25_-15_20.nc". first and last are
// the date ranges of the first and last listed granules.
func Filename(s domain.RetrievalSettings, first, last domain.FileDateRange) string {
	b := s.BoundingBox
	return fmt.Sprintf("%s_%s_%s_%s_%s%s_%s%s_%s_%s_%s_%s.nc",
		s.Source, s.Variable, s.SpaceResolution, s.TimeResolution,
		first.StartYear, first.StartMonth, last.EndYear, last.EndMonth,
		formatCoord(b.LonMin), formatCoord(b.LonMax), formatCoord(b.LatMin), formatCoord(b.LatMax))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write creates (or replaces) path with the dataset. No file is left at
// path when writing fails.
func (w *Writer) Write(path string, ds *domain.SubsettedDataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	if nt, _, _ := ds.Shape(); nt == 0 {
		return fmt.Errorf("%w: nothing to write", domain.ErrNoReachableGranules)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	defer store.LockNetCDF()()

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file: %w", err)
	}
	if err := w.write(nc, ds); err != nil {
		_ = nc.Close()
		_ = os.Remove(path)
		return err
	}
	if err := nc.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close NetCDF file: %w", err)
	}
	return nil
}

// write defines and fills an open, empty dataset.
//
//nolint:gocyclo // Sequential define/write steps.
func (w *Writer) write(nc netcdf.Dataset, ds *domain.SubsettedDataset) error {
	nt, nLat, nLon := ds.Shape()

	// Dimensions.
	ncharsDim, err := nc.AddDim("nchars", TimeStringLen)
	if err != nil {
		return fmt.Errorf("failed to add nchars dimension: %w", err)
	}
	//nolint:gosec // G115: shape lengths are non-negative.
	timeDim, err := nc.AddDim("time", uint64(nt))
	if err != nil {
		return fmt.Errorf("failed to add time dimension: %w", err)
	}
	//nolint:gosec // G115: shape lengths are non-negative.
	latDim, err := nc.AddDim("lat", uint64(nLat))
	if err != nil {
		return fmt.Errorf("failed to add lat dimension: %w", err)
	}
	//nolint:gosec // G115: shape lengths are non-negative.
	lonDim, err := nc.AddDim("lon", uint64(nLon))
	if err != nil {
		return fmt.Errorf("failed to add lon dimension: %w", err)
	}

	// Variables.
	timeStartVar, err := nc.AddVar("time_start", netcdf.CHAR, []netcdf.Dim{timeDim, ncharsDim})
	if err != nil {
		return fmt.Errorf("failed to add time_start: %w", err)
	}
	timeEndVar, err := nc.AddVar("time_end", netcdf.CHAR, []netcdf.Dim{timeDim, ncharsDim})
	if err != nil {
		return fmt.Errorf("failed to add time_end: %w", err)
	}
	latVar, err := nc.AddVar("lat", netcdf.FLOAT, []netcdf.Dim{latDim})
	if err != nil {
		return fmt.Errorf("failed to add lat: %w", err)
	}
	lonVar, err := nc.AddVar("lon", netcdf.FLOAT, []netcdf.Dim{lonDim})
	if err != nil {
		return fmt.Errorf("failed to add lon: %w", err)
	}
	valueVar, err := nc.AddVar(valueVarName, netcdf.FLOAT, []netcdf.Dim{timeDim, latDim, lonDim})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", valueVarName, err)
	}

	// Attributes.
	if err := writeAttrs(nc.Attr, w.globalAttrs(ds)); err != nil {
		return fmt.Errorf("failed to write global attributes: %w", err)
	}
	for _, v := range []netcdf.Var{timeStartVar, timeEndVar} {
		if err := v.Attr("_Encoding").WriteBytes([]byte("ascii")); err != nil {
			return fmt.Errorf("failed to write _Encoding: %w", err)
		}
	}
	if err := valueVar.Attr("_FillValue").WriteFloat32s([]float32{float32(domain.FillValue)}); err != nil {
		return fmt.Errorf("failed to write _FillValue: %w", err)
	}
	for _, va := range []struct {
		v     netcdf.Var
		attrs domain.Attributes
	}{
		{latVar, ds.LatAttrs},
		{lonVar, ds.LonAttrs},
		{valueVar, ds.ValueAttrs},
	} {
		if err := writeAttrs(va.v.Attr, va.attrs.Without("_FillValue")); err != nil {
			return fmt.Errorf("failed to write variable attributes: %w", err)
		}
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	// Data.
	if err := timeStartVar.WriteBytes(packStrings(ds.TimeStart, TimeStringLen)); err != nil {
		return fmt.Errorf("failed to write time_start: %w", err)
	}
	if err := timeEndVar.WriteBytes(packStrings(ds.TimeEnd, TimeStringLen)); err != nil {
		return fmt.Errorf("failed to write time_end: %w", err)
	}
	if err := latVar.WriteFloat32s(narrow(ds.Lat)); err != nil {
		return fmt.Errorf("failed to write lat: %w", err)
	}
	if err := lonVar.WriteFloat32s(narrow(ds.Lon)); err != nil {
		return fmt.Errorf("failed to write lon: %w", err)
	}
	if err := valueVar.WriteFloat32s(narrow(ds.Values)); err != nil {
		return fmt.Errorf("failed to write %s: %w", valueVarName, err)
	}

	return nil
}

// globalAttrs returns the first granule's global attributes minus the
// recomputed ones, followed by values derived from the subset.
func (w *Writer) globalAttrs(ds *domain.SubsettedDataset) domain.Attributes {
	nt, nLat, nLon := ds.Shape()
	now := w.now().UTC()

	latMin, latMax := float32(floats.Min(ds.Lat)), float32(floats.Max(ds.Lat))
	lonMin, lonMax := float32(floats.Min(ds.Lon)), float32(floats.Max(ds.Lon))

	attrs := ds.GlobalAttrs.Without(recomputedAttrs...)
	attrs = append(attrs,
		domain.Attribute{Name: "date_created", Value: now.Format("2006-01-02T15:04:05.000Z")},
		domain.Attribute{Name: "time_coverage_start", Value: ds.TimeStart[0]},
		domain.Attribute{Name: "time_coverage_end", Value: ds.TimeEnd[nt-1]},
		domain.Attribute{Name: "northernmost_latitude", Value: []float32{latMax}},
		domain.Attribute{Name: "southernmost_latitude", Value: []float32{latMin}},
		domain.Attribute{Name: "westernmost_longitude", Value: []float32{lonMin}},
		domain.Attribute{Name: "easternmost_longitude", Value: []float32{lonMax}},
		domain.Attribute{Name: "geospatial_lat_max", Value: []float32{latMax}},
		domain.Attribute{Name: "geospatial_lat_min", Value: []float32{latMin}},
		domain.Attribute{Name: "geospatial_lon_max", Value: []float32{lonMax}},
		domain.Attribute{Name: "geospatial_lon_min", Value: []float32{lonMin}},
		domain.Attribute{Name: "sw_point_latitude", Value: []float32{latMin}},
		domain.Attribute{Name: "sw_point_longitude", Value: []float32{lonMin}},
		//nolint:gosec // G115: grid sizes fit in int32.
		domain.Attribute{Name: "number_of_lines", Value: []int32{int32(nLat)}},
		//nolint:gosec // G115: grid sizes fit in int32.
		domain.Attribute{Name: "number_of_columns", Value: []int32{int32(nLon)}},
		domain.Attribute{Name: "_lastModified", Value: now.Format("02 January 2006")},
	)
	if minVal, maxVal, ok := ds.DataRange(); ok {
		attrs = append(attrs,
			domain.Attribute{Name: "data_minimum", Value: []float32{float32(minVal)}},
			domain.Attribute{Name: "data_maximum", Value: []float32{float32(maxVal)}},
		)
	}
	return attrs
}

func writeAttrs(attr func(string) netcdf.Attr, attrs domain.Attributes) error {
	for _, a := range attrs {
		if err := writeAttr(attr(a.Name), a.Value); err != nil {
			return fmt.Errorf("attribute %s: %w", a.Name, err)
		}
	}
	return nil
}

func writeAttr(a netcdf.Attr, value any) error {
	switch v := value.(type) {
	case string:
		return a.WriteBytes([]byte(v))
	case []float64:
		return a.WriteFloat64s(v)
	case []float32:
		return a.WriteFloat32s(v)
	case []int32:
		return a.WriteInt32s(v)
	case []int16:
		return a.WriteInt16s(v)
	case []int8:
		return a.WriteInt8s(v)
	default:
		return fmt.Errorf("unsupported attribute value %T", value)
	}
}

// packStrings lays out strs as a [len(strs)][width] NUL-padded char array.
// Longer strings are truncated.
func packStrings(strs []string, width int) []byte {
	out := make([]byte, len(strs)*width)
	for i, s := range strs {
		copy(out[i*width:(i+1)*width], s)
	}
	return out
}

func narrow(src []float64) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out
}
