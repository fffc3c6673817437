// Command oceancolor retrieves Level-3 ocean-color granules, subsets them to a
// bounding box and writes the result as NetCDF.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.ngs.io/oceancolor/internal/config"
	"go.ngs.io/oceancolor/internal/log"
)

const version = "0.1.0"

var (
	// configFile is the optional TOML configuration file.
	configFile string

	// cfg is the effective configuration after the file and flags are applied.
	cfg config.Config

	flags *config.Flags
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:     "oceancolor",
	Short:   "Retrieve and subset Level-3 ocean-color data.",
	Version: version,
	Long: "oceancolor queries the OceanData file search for Level-3 mapped granules, " +
		"reads each one over OPeNDAP, subsets it to a bounding box and stacks the " +
		"frames into a single NetCDF file. Settings come from defaults, an optional " +
		"TOML file (--config) and flags, in that order.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Default()
		if configFile != "" {
			var err error
			if cfg, err = config.Load(configFile); err != nil {
				return err
			}
		}
		if err := flags.Apply(&cfg); err != nil {
			return err
		}
		return log.Init(cfg.Log.Debug, cfg.Log.File)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a TOML configuration file")
	flags = config.BindFlags(RootCmd.PersistentFlags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}
