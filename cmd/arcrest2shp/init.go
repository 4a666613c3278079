package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
)

//go:embed templates/arcrest2shp.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .arcrest2shp configuration file",
		Long: `Init writes a commented .arcrest2shp configuration file to the current
directory.

The file holds per-host settings: ArcGIS tokens, extra headers, container
patterns, crawl ignore/follow patterns and request rates.

Examples:
  # Create .arcrest2shp in current directory
  arcrest2shp init

  # Create config file at a specific path
  arcrest2shp init -o myconfig.yaml

  # Force overwrite existing file
  arcrest2shp init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/arcrest2shp.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	writeTo(out, "Created configuration file: %s\n", outputPath)
	writeTo(out, "\nEdit this file to configure per-host settings such as:\n")
	writeTo(out, "  - ArcGIS tokens and custom headers\n")
	writeTo(out, "  - Container patterns and URL patterns to ignore or follow\n")
	writeTo(out, "  - Request rate limits\n")

	return nil
}
