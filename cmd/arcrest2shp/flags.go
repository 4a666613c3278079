package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
)

// addCrawlFlags registers the flags shared by run and crawl.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("max-retries", "r", config.DefaultMaxRetries,
		"Retries after a transient network failure before a URL is unresolved")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Fixed delay between retries")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second across crawl and workers (0 = unlimited)")
	cmd.Flags().Bool("robots", false,
		"Respect robots.txt on the services host")
	cmd.Flags().String("user-agent", userAgent(),
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"HTTP(S) or SOCKS5 proxy URL, e.g. socks5://127.0.0.1:1080")
	cmd.Flags().StringSlice("container-pattern", []string{config.DefaultContainerPattern},
		"URL substrings marking container services that are never processed as layers")
	cmd.Flags().String("name-strategy", config.DefaultNameStrategy,
		"How layer names are derived: bracket-code or plain")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .arcrest2shp in current or home directory)")
}

// buildConfig creates a Config from cobra command flags. Flags that are
// not registered on cmd keep their defaults.
func buildConfig(cmd *cobra.Command, rootURL string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.RootURL = rootURL
	flags := cmd.Flags()

	var err error

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("robots"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyURL, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ContainerPatterns, err = flags.GetStringSlice("container-pattern"); err != nil {
		return nil, err
	}
	if cfg.NameStrategy, err = flags.GetString("name-strategy"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	if flags.Lookup("aoi") != nil {
		if err := readRunFlags(cmd, cfg); err != nil {
			return nil, err
		}
	}

	// Load per-service settings from the config file.
	// An explicit --config must exist; otherwise a missing file is fine.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.ServiceConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	} else {
		cfg.ServiceConfigs = &config.File{
			Services: make(map[string]config.ServiceConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// readRunFlags reads the flags only the run command registers.
func readRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if cfg.AOIPath, err = flags.GetString("aoi"); err != nil {
		return err
	}
	if cfg.AOISRID, err = flags.GetInt("aoi-srid"); err != nil {
		return err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return err
	}
	if cfg.Converter, err = flags.GetString("converter"); err != nil {
		return err
	}
	if cfg.ConverterPath, err = flags.GetString("converter-path"); err != nil {
		return err
	}
	if cfg.PageSize, err = flags.GetInt("page-size"); err != nil {
		return err
	}

	noCleanup, err := flags.GetBool("no-cleanup")
	if err != nil {
		return err
	}
	cfg.Cleanup = !noCleanup

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noHistory

	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return v
}
