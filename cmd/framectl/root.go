package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mos-project/mos-core/cmd/framectl/logger"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	noColor     bool
	profilePath string
	logDir      string

	// profile is loaded from --config before any command runs.
	profile Profile
)

var rootCmd = &cobra.Command{
	Use:   "framectl",
	Short: "Exercise and inspect the buddy frame allocator",
	Long: `framectl drives the physical frame allocator outside the kernel.
It runs the reference allocation scenario, replays alloc/free traces,
stress-tests the allocator against real mapped memory, and dumps the
resulting block map.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		if err := logger.Init(logger.Options{
			Enabled: logDir != "",
			LogDir:  logDir,
			Level:   level,
		}); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}

		profile = Profile{}
		if profilePath != "" {
			p, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			profile = p
			logger.Info("profile loaded", "path", profilePath)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVarP(&profilePath, "config", "c", "", "TOML profile with default geometry")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write JSON logs to a dated file in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// checkMaxArgs validates that at most max arguments were provided
func checkMaxArgs(args []string, max int, usage string) error {
	if len(args) > max {
		return fmt.Errorf("expected at most %d argument(s), got %d\nUsage: %s", max, len(args), usage)
	}
	return nil
}
