package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igcrawl/pkg/config"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/storage"
	"igcrawl/pkg/ui"
)

var (
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dbPath     string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "igcrawl",
	Short: "Bounded-depth follow graph crawler",
	Long: `igcrawl pulls an account, its recent media and its follow graph into a
local SQLite database, then walks the graph two hops out:

  order 1  influencer  the seed: profile, media, followers, following
  order 2  target      followers of an influencer: profile, media, following
  order 3  candidate   anyone followed by the above: profile, media

Runs are resumable and idempotent: rerunning a crawl only fetches what is
missing, and an account reached by a more important path is promoted.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.Out = nopWriter{}
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Out = os.Stderr
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igcrawl.yaml or ~/.config/igcrawl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output")

	rootCmd.SetVersionTemplate(`igcrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig layers file, environment and the given flag overrides, then
// sets up the global logger.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if dbPath != "" {
		flags["db"] = dbPath
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(cfg.Storage.Path, logger.GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Storage.Path, err)
	}
	return store, nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
