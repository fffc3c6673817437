package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"go.ngs.io/oceancolor/internal/app"
	"go.ngs.io/oceancolor/internal/domain"
	httpHandler "go.ngs.io/oceancolor/internal/http"
	"go.ngs.io/oceancolor/internal/log"
	"go.ngs.io/oceancolor/internal/usecase"
)

// servePort overrides the configured server port.
var servePort string

func init() {
	RootCmd.AddCommand(validateCmd, urlsCmd, fetchCmd, plotCmd, serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Server port (overrides the config file)")
}

// validateCmd checks the effective settings without touching the network.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the retrieval settings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), s)
		fmt.Fprintln(cmd.OutOrStdout(), "settings are valid")
		return nil
	},
}

// urlsCmd prints the OPeNDAP URL of every listed granule.
var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "List the granule URLs for the settings without fetching them.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		urls, err := app.NewPipeline(cfg).URLs(cmd.Context(), s)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

// fetchCmd runs the whole pipeline and saves the subset.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch, subset and save granules as one NetCDF file.",
	Long: "Fetch lists the granules, reads the bounding box from each one and writes " +
		"the stacked subset to the output directory. Unreachable granules after the " +
		"first are skipped and reported. Pass --plot to also render PNG frames.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, true, cfg.Plot.Enabled)
	},
}

// plotCmd renders the subset without saving it.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Fetch and subset granules and render them as PNG files.",
	Long: "Plot draws one log-scaled heat map per time step and, with --point lon,lat, " +
		"a time series at the nearest grid cell.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Plot.Enabled = true
		return run(cmd, false, true)
	},
}

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the retrieval pipeline over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		router := httpHandler.SetupRouter(app.NewPipeline(cfg), cfg.Server.CORSOrigins)
		addr := ":" + cfg.Server.Port
		log.Infow("server listening", "addr", addr, "output_dir", cfg.OutputDir)
		return router.Run(addr)
	},
}

func settings() (domain.RetrievalSettings, error) {
	s, err := cfg.Settings()
	if err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func run(cmd *cobra.Command, save, plot bool) error {
	s, err := settings()
	if err != nil {
		return err
	}
	result, err := app.NewPipeline(cfg).Execute(cmd.Context(), usecase.RetrievalRequest{Settings: s, Save: save, Plot: plot})
	if result != nil && result.Report != nil {
		printReport(cmd.OutOrStdout(), result.Report)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Shape (time, lat, lon): %d x %d x %d\n", result.Shape[0], result.Shape[1], result.Shape[2])
	if result.OutputPath != "" {
		fmt.Fprintf(w, "Saved: %s\n", result.OutputPath)
	}
	for _, p := range result.PlotPaths {
		fmt.Fprintf(w, "Plot: %s\n", p)
	}
	fmt.Fprintf(w, "Run %s finished in %s\n", result.RunID, result.Duration)
	return nil
}

func printSettings(w io.Writer, s domain.RetrievalSettings) {
	fmt.Fprintf(w, "Source:       %s %s (%s, %s)\n", s.Source, s.Variable, s.SpaceResolution, s.TimeResolution)
	fmt.Fprintf(w, "Time range:   %s to %s\n", s.DateMin, s.DateMax)
	fmt.Fprintf(w, "Bounding box: %s\n", s.BoundingBox)
}

func printReport(w io.Writer, r *domain.RunReport) {
	fmt.Fprintf(w, "Granules: %d requested, %d fetched, %d skipped\n", r.Requested, r.Fetched, len(r.Skipped))
	for _, sk := range r.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", sk.URL, strings.TrimSpace(sk.Reason))
	}
}

// exitCode is 2 for configuration errors and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, domain.ErrConfiguration) {
		return 2
	}
	return 1
}
