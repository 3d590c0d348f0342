// AngelaMos | 2026
// main.go

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/tierform/internal/config"
	"github.com/carterperez-dev/tierform/internal/tier"
)

var (
	// set by -ldflags at release time
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "tierform",
		Short:         "Build credit score tier configurations",
		Long:          "Interactive builder for credit score tiers and their finance/lease markups, served over HTTP or replayed from a script.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "config.yaml", "path to config file",
	)

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newExportCmd(&configPath))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("tierform %s (%s)\n", version, commit)
		},
	})

	return rootCmd
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func catalogFromConfig(entries []config.CatalogEntry) tier.Catalog {
	catalog := make(tier.Catalog, 0, len(entries))
	for _, e := range entries {
		catalog = append(catalog, tier.CatalogEntry{
			Label:    e.Label,
			MinValue: e.MinValue,
		})
	}
	return catalog
}
