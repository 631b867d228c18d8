package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkbound/xray/internal/config"
	"github.com/inkbound/xray/internal/home"
	"github.com/inkbound/xray/version"
)

var (
	cfgFile string
	homeDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "xray",
	Short: "Progressive spoiler-bounded book analysis",
	Long: `xray builds an X-Ray companion for a book: characters, locations,
themes, timeline and historical figures, extracted by an AI provider
chunk by chunk and bounded by your reading progress so the result
never spoils what you have not read yet.

Snapshots are cached per book at percent-indexed resume points, so
asking for a deeper analysis later only processes the new text.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.xray/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "xray home directory (default: ~/.xray)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup resolves the home directory and loads configuration; shared by
// every command that touches books or providers.
func setup() (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return h, cm, nil
}
