// Package main provides the ocean-color subsetting HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.ngs.io/oceancolor/internal/app"
	"go.ngs.io/oceancolor/internal/config"
	httpHandler "go.ngs.io/oceancolor/internal/http"
	"go.ngs.io/oceancolor/internal/log"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("oceancolor-server version %s\n", version)
		return
	}

	// Load configuration: file first, then environment.
	cfg := config.Default()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.Plot.Dir = getEnv("PLOT_DIR", cfg.Plot.Dir)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if timeout := getEnv("GRANULE_TIMEOUT", ""); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid GRANULE_TIMEOUT: %v\n", err)
			os.Exit(2)
		}
		cfg.GranuleTimeout.Duration = d
	}
	if point := getEnv("PLOT_POINT", ""); point != "" {
		lon, lat, err := config.ParsePoint(point)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid PLOT_POINT: %v\n", err)
			os.Exit(2)
		}
		cfg.Plot.PointLon, cfg.Plot.PointLat = &lon, &lat
	}
	cfg.Log.Debug = cfg.Log.Debug || *debug

	if err := log.Init(cfg.Log.Debug, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infof("Starting ocean-color server...")
	log.Infow("configuration", "port", cfg.Server.Port, "data_dir", cfg.DataDir,
		"output_dir", cfg.OutputDir, "search_url", cfg.SearchURL, "granule_timeout", cfg.GranuleTimeout.String())

	if cfg.Plot.Enabled {
		log.Infow("plotting enabled", "plot_dir", cfg.Plot.Dir, "point", app.SeriesPoint(cfg.Plot))
	}
	pipeline := app.NewPipeline(cfg)

	// Setup router.
	router := httpHandler.SetupRouter(pipeline, cfg.Server.CORSOrigins)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", cfg.Server.Port)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Ocean Color Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  oceancolor-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println("  -debug         Enable debug logging")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  CONFIG_FILE             TOML configuration file (optional)")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_DIR                Directory for the file listing (default: ./data)")
	fmt.Println("  OUTPUT_DIR              Directory for subset NetCDF files (default: ./data/output)")
	fmt.Println("  PLOT_DIR                Directory for PNG plots (default: ./data/plots)")
	fmt.Println("  GRANULE_TIMEOUT         Timeout for opening one granule (default: 2m)")
	fmt.Println("  PLOT_POINT              Time series location as lon,lat (optional)")
	fmt.Println("  LOG_FILE                Rotated JSON log file (optional)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  oceancolor-server")
	fmt.Println()
	fmt.Println("  # Start server on custom port")
	fmt.Println("  PORT=3000 oceancolor-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                  Health check")
	fmt.Println("  GET  /v1/products             Supported products and default settings")
	fmt.Println("  POST /v1/validate             Validate retrieval settings")
	fmt.Println("  POST /v1/urls                 List granule URLs for settings")
	fmt.Println("  POST /v1/subsets              Run a retrieval and save the subset")
	fmt.Println("  GET  /v1/subsets/:name        Download a saved subset")
	fmt.Println()
}
