// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for renutil.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"renutil/internal/config"
	"renutil/internal/registry"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging
	verbose bool
	// registryFlag overrides the registry root directory
	registryFlag string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "renutil",
		Short: "A version manager for the Ren'Py SDK",
		Long: TitleStyle.Render("renutil") + SubtitleStyle.Render(" - A version manager for the Ren'Py SDK") + `

renutil installs, launches, and removes Ren'Py SDK releases side by
side. Installs include the RAPT Android toolchain, patched to run
headlessly, which makes renutil suitable for CI build agents as well
as developer machines.

Versions live under a registry directory (default ~/.renutil), one
fully self-contained tree per version.

` + SubtitleStyle.Render("Examples:") + `
  renutil list                      Show the newest available releases
  renutil install latest            Install the newest stable release
  renutil launch 8.1.3 ./mygame     Run a project with an installed version
  renutil uninstall 8.1.3           Remove an installed version
  renutil cleanup 8.1.3             Drop build artifacts to reclaim space`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&registryFlag, "registry", "r", "", "registry root directory (default is $HOME/.renutil)")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(launchCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling.
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig resolves configuration with flag overrides applied.
func loadConfig() (*config.Config, error) {
	return config.Load(config.Overrides{
		Registry: registryFlag,
		Verbose:  verbose,
	})
}

// newLogger builds the CLI logger honoring the verbosity setting.
func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// openRegistry loads config and opens the registry, the common preamble
// of every subcommand.
func openRegistry() (*config.Config, *log.Logger, *registry.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	reg, err := registry.New(cfg.Registry, registry.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, reg, nil
}
