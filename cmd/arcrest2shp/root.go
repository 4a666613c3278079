package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for arcrest2shp.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arcrest2shp",
		Short: "Extract ArcGIS REST layers inside an area of interest",
		Long: `arcrest2shp crawls an ArcGIS REST services directory, classifies every
layer page as vector or raster, downloads vector features inside an area
of interest, clips them to the boundary and writes shapefiles.

Results are recorded in extracted_data_vector.csv, extracted_data_raster.csv
and error_log.csv under <output>/extracted_data, with a summary.md report.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
