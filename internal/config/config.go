// Package config loads retrieval configuration from a TOML file and applies
// command-line overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"go.ngs.io/oceancolor/internal/adapter/search"
	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/usecase"
)

// Duration is a time.Duration written as a string ("90s", "2m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Retrieval mirrors domain.RetrievalSettings with the bounding box kept as
// a (lon_min, lon_max, lat_min, lat_max) list.
type Retrieval struct {
	DateMin         string    `toml:"date_min"`
	DateMax         string    `toml:"date_max"`
	SpaceResolution string    `toml:"space_resolution"`
	TimeResolution  string    `toml:"time_resolution"`
	BaseURL         string    `toml:"base_url"`
	Level           string    `toml:"level"`
	MapBin          string    `toml:"map_bin"`
	Source          string    `toml:"source"`
	Variable        string    `toml:"variable"`
	BoundingBox     []float64 `toml:"bounding_box"`
}

// Plot controls the PNG renderer.
type Plot struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`

	// Time series location. Both must be set for a series to be drawn.
	PointLon *float64 `toml:"point_lon"`
	PointLat *float64 `toml:"point_lat"`
}

// Log configures internal/log.
type Log struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Server configures the HTTP API.
type Server struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Config is the full configuration of a retrieval tool.
type Config struct {
	Retrieval      Retrieval `toml:"retrieval"`
	DataDir        string    `toml:"data_dir"`
	OutputDir      string    `toml:"output_dir"`
	SearchURL      string    `toml:"search_url"`
	SearchTimeout  Duration  `toml:"search_timeout"`
	GranuleTimeout Duration  `toml:"granule_timeout"`
	Plot           Plot      `toml:"plot"`
	Log            Log       `toml:"log"`
	Server         Server    `toml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	s := domain.DefaultSettings()
	return Config{
		Retrieval: Retrieval{
			DateMin:         s.DateMin,
			DateMax:         s.DateMax,
			SpaceResolution: string(s.SpaceResolution),
			TimeResolution:  string(s.TimeResolution),
			BaseURL:         s.BaseURL,
			Level:           s.Level,
			MapBin:          s.MapBin,
			Source:          s.Source,
			Variable:        s.Variable,
			BoundingBox:     s.BoundingBox.Slice(),
		},
		DataDir:        "./data",
		OutputDir:      "./data/output",
		SearchURL:      search.DefaultURL,
		SearchTimeout:  Duration{time.Minute},
		GranuleTimeout: Duration{usecase.DefaultGranuleTimeout},
		Plot:           Plot{Dir: "./data/plots"},
		Server:         Server{Port: "8080"},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	md, err := toml.NewDecoder(f).Decode(&c)
	if err != nil {
		return c, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return c, fmt.Errorf("%w: unknown keys in %s: %s", domain.ErrConfiguration, path, strings.Join(keys, ", "))
	}
	return c, nil
}

// Settings converts the retrieval section to domain settings. The result is
// not validated.
func (c Config) Settings() (domain.RetrievalSettings, error) {
	box, err := domain.NewBoundingBox(c.Retrieval.BoundingBox)
	if err != nil {
		return domain.RetrievalSettings{}, err
	}
	r := c.Retrieval
	return domain.RetrievalSettings{
		DateMin:         r.DateMin,
		DateMax:         r.DateMax,
		SpaceResolution: domain.SpaceResolution(r.SpaceResolution),
		TimeResolution:  domain.TimeResolution(r.TimeResolution),
		BaseURL:         r.BaseURL,
		Level:           r.Level,
		MapBin:          r.MapBin,
		Source:          r.Source,
		Variable:        r.Variable,
		BoundingBox:     box,
	}, nil
}

// Flags holds command-line overrides. Only flags set by the user are
// applied, so file values survive unset flags.
type Flags struct {
	fs *pflag.FlagSet

	dateMin, dateMax string
	space, period    string
	bbox             []float64
	dataDir          string
	outputDir        string
	searchURL        string
	searchTimeout    time.Duration
	granuleTimeout   time.Duration
	plot             bool
	plotDir          string
	point            []float64
	debug            bool
	logFile          string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}
	fs.StringVar(&f.dateMin, "date-min", d.Retrieval.DateMin, "Start of the time range ("+domain.DateLayout+")")
	fs.StringVar(&f.dateMax, "date-max", d.Retrieval.DateMax, "End of the time range ("+domain.DateLayout+")")
	fs.StringVar(&f.space, "space-resolution", d.Retrieval.SpaceResolution, "Spatial resolution (4km, 9km)")
	fs.StringVar(&f.period, "time-resolution", d.Retrieval.TimeResolution, "Compositing period (YR, MO, 8D, DAY)")
	fs.Float64SliceVar(&f.bbox, "bbox", d.Retrieval.BoundingBox, "Bounding box lon_min,lon_max,lat_min,lat_max")
	fs.StringVar(&f.dataDir, "data-dir", d.DataDir, "Directory for the file listing")
	fs.StringVar(&f.outputDir, "output-dir", d.OutputDir, "Directory for subset NetCDF files")
	fs.StringVar(&f.searchURL, "search-url", d.SearchURL, "File search endpoint")
	fs.DurationVar(&f.searchTimeout, "search-timeout", d.SearchTimeout.Duration, "File search HTTP timeout")
	fs.DurationVar(&f.granuleTimeout, "granule-timeout", d.GranuleTimeout.Duration, "Timeout for opening one granule")
	fs.BoolVar(&f.plot, "plot", false, "Render PNG plots of the subset")
	fs.StringVar(&f.plotDir, "plot-dir", d.Plot.Dir, "Directory for PNG plots")
	fs.Float64SliceVar(&f.point, "point", nil, "Time series location lon,lat")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this rotated file")
	return f
}

// Apply copies every flag the user set into c.
func (f *Flags) Apply(c *Config) error {
	changed := f.fs.Changed
	if changed("date-min") {
		c.Retrieval.DateMin = f.dateMin
	}
	if changed("date-max") {
		c.Retrieval.DateMax = f.dateMax
	}
	if changed("space-resolution") {
		c.Retrieval.SpaceResolution = f.space
	}
	if changed("time-resolution") {
		c.Retrieval.TimeResolution = f.period
	}
	if changed("bbox") {
		c.Retrieval.BoundingBox = append([]float64(nil), f.bbox...)
	}
	if changed("data-dir") {
		c.DataDir = f.dataDir
	}
	if changed("output-dir") {
		c.OutputDir = f.outputDir
	}
	if changed("search-url") {
		c.SearchURL = f.searchURL
	}
	if changed("search-timeout") {
		c.SearchTimeout.Duration = f.searchTimeout
	}
	if changed("granule-timeout") {
		c.GranuleTimeout.Duration = f.granuleTimeout
	}
	if changed("plot") {
		c.Plot.Enabled = f.plot
	}
	if changed("plot-dir") {
		c.Plot.Dir = f.plotDir
	}
	if changed("point") {
		if len(f.point) != 2 {
			return &domain.ValidationError{Field: "point", Value: fmt.Sprint(f.point), Reason: "must be lon,lat"}
		}
		lon, lat := f.point[0], f.point[1]
		c.Plot.PointLon, c.Plot.PointLat = &lon, &lat
	}
	if changed("debug") {
		c.Log.Debug = f.debug
	}
	if changed("log-file") {
		c.Log.File = f.logFile
	}
	return nil
}

// ParsePoint parses a "lon,lat" pair such as the PLOT_POINT environment value.
func ParsePoint(v string) (lon, lat float64, err error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0, &domain.ValidationError{Field: "point", Value: v, Reason: "must be lon,lat"}
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, &domain.ValidationError{Field: "point", Value: v, Reason: "longitude is not a number"}
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, &domain.ValidationError{Field: "point", Value: v, Reason: "latitude is not a number"}
	}
	return lon, lat, nil
}
