package domain

import (
	"fmt"
	"strings"
)

// BuildURL returns the OPeNDAP access URL for one granule, e.g.
//
//	http://oceandata.sci.gsfc.nasa.gov/opendap/MODISA/L3SMI/2021/1101/
//	AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc
func BuildURL(s RetrievalSettings, r FileDateRange) string {
	var b strings.Builder
	b.WriteString(s.BaseURL)
	fmt.Fprintf(&b, "%sSMI/%s/%s%s/", s.Level, r.StartYear, r.StartMonth, r.StartDay)
	fmt.Fprintf(&b, "%s.%s_%s.", s.Source, r.Start(), r.End())
	fmt.Fprintf(&b, "%s%s.%s.%s.%s.%s.nc",
		s.Level, s.MapBin, s.TimeResolution, s.Variable, s.VariableProduct().Field, s.SpaceResolution)
	return b.String()
}

// BuildURLs validates the settings and turns a file listing into access URLs.
// The output has one URL per filename, in listing order.
func BuildURLs(s RetrievalSettings, filenames []string) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ranges, err := ParseDateRanges(filenames)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(ranges))
	for i, r := range ranges {
		urls[i] = BuildURL(s, r)
	}
	return urls, nil
}

// GranuleName returns the last path element of a granule URL.
func GranuleName(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
