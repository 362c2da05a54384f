// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "trustgraph",
	Short: "A backend serving a professional trust graph.",
	Long: `trustgraph serves a mock trust graph of professional profiles, extracts
skills from CV text, and verifies claimed GitHub contributions either in a
sandboxed subprocess or by calling the GitHub search API directly.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
}

// loadRuntime reads the config named by --config and builds the logger.
// --verbose overrides the configured log level.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{
		Level:   level,
		Format:  cfg.Log.Format,
		Service: "trustgraph",
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}
