package domain

import "regexp"

// datePattern matches a YYYYMMDD run. FindAllString scans left to right
// without overlap, so "2021110120211130" yields two dates.
var datePattern = regexp.MustCompile(`[0-9]{8}`)

// FileDateRange is the coverage period encoded in a granule filename.
// Components are kept as fixed-width strings because they are spliced back
// into URLs verbatim.
type FileDateRange struct {
	StartYear  string
	StartMonth string
	StartDay   string
	EndYear    string
	EndMonth   string
	EndDay     string
}

// Start returns the start date as YYYYMMDD.
func (r FileDateRange) Start() string { return r.StartYear + r.StartMonth + r.StartDay }

// End returns the end date as YYYYMMDD.
func (r FileDateRange) End() string { return r.EndYear + r.EndMonth + r.EndDay }

// ParseDateRange extracts the start and end date of one granule filename, e.g.
// "AQUA_MODIS.20211101_20211130.L3m.MO.CHL.chlor_a.4km.nc".
func ParseDateRange(filename string) (FileDateRange, error) {
	dates := datePattern.FindAllString(filename, 2)
	if len(dates) < 2 {
		return FileDateRange{}, &FilenameError{Filename: filename, Found: len(dates)}
	}
	start, end := dates[0], dates[1]
	return FileDateRange{
		StartYear:  start[0:4],
		StartMonth: start[4:6],
		StartDay:   start[6:8],
		EndYear:    end[0:4],
		EndMonth:   end[4:6],
		EndDay:     end[6:8],
	}, nil
}

// ParseDateRanges parses every filename in order. The first malformed entry
// aborts the whole batch.
func ParseDateRanges(filenames []string) ([]FileDateRange, error) {
	ranges := make([]FileDateRange, 0, len(filenames))
	for _, name := range filenames {
		r, err := ParseDateRange(name)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}
