package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"capturevision/internal/config"
	"capturevision/internal/logging"
	"capturevision/internal/wiring"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	license    string
	templates  string
	journal    string
	logLevel   string
	logFormat  string
}

// cfg is the effective configuration, set before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "capturevision",
	Short: "Template-driven document and barcode capture",
	Long: `capturevision resolves declarative capture templates into execution graphs
and runs them over image files: document boundary detection and
normalization, and barcode reading.

Configuration comes from --config (YAML or JSON), then the
CAPTUREVISION_LICENSE and CAPTUREVISION_TEMPLATES environment variables,
then the flags below.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Config file (YAML or JSON)")
	f.StringVar(&rootFlags.license, "license", "", "License key (default: $"+config.EnvLicense+")")
	f.StringVar(&rootFlags.templates, "templates", "", "Template document path (default: embedded builtin)")
	f.StringVar(&rootFlags.journal, "journal", "", "SQLite capture journal path")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(licenseCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func loadConfig(_ *cobra.Command, _ []string) error {
	c := config.Default()
	if rootFlags.configPath != "" {
		loaded, err := config.LoadFromPath(rootFlags.configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	c.ApplyEnv(os.LookupEnv)

	if rootFlags.license != "" {
		c.License = rootFlags.license
	}
	if rootFlags.templates != "" {
		c.Templates = rootFlags.templates
	}
	if rootFlags.journal != "" {
		c.Journal.Path = rootFlags.journal
	}
	if rootFlags.logLevel != "" {
		c.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		c.Log.Format = rootFlags.logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, c.Log.Format)
	cfg = c
	return nil
}

func buildApp() (*wiring.App, error) {
	app, err := wiring.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return app, nil
}
