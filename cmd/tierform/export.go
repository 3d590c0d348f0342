// AngelaMos | 2026
// export.go

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/tierform/internal/config"
	"github.com/carterperez-dev/tierform/internal/script"
	"github.com/carterperez-dev/tierform/internal/tier"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
)

var errNoExport = errors.New("script produced no export; add a submit step with exactly one default tier")

func newExportCmd(configPath *string) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <script.yaml>",
		Short: "Replay a form script and print the tier export",
		Long:  "Replays the interactions of a YAML script against a fresh seeded session and writes the latest export as JSON (stdout by default) or as an XLSX workbook.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, *configPath, args[0], format, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format (json, xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (required for xlsx)")

	return cmd
}

func runExport(cmd *cobra.Command, configPath, scriptPath, format, out string) error {
	if format != formatJSON && format != formatXLSX {
		return fmt.Errorf("unknown format %q", format)
	}
	if format == formatXLSX && out == "" {
		return fmt.Errorf("--out is required for xlsx output")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	sc, err := script.Load(scriptPath)
	if err != nil {
		return err
	}

	svc := tier.NewService(
		tier.NewMemoryRepository(cfg.Session.TTL),
		catalogFromConfig(cfg.Catalog),
		cfg.Session.SeedCount,
	)

	view, rejected, err := script.Run(cmd.Context(), svc, sc)
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		logger.Warn("script finished with rejected steps", "rejected", len(rejected))
	}
	if view.Export == nil {
		return errNoExport
	}

	result, err := svc.LatestExport(cmd.Context(), view.SessionID)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close() //nolint:errcheck // close after write
		w = f
	}

	if format == formatXLSX {
		return tier.WriteXLSX(w, result)
	}

	if _, err := fmt.Fprintln(w, result.Document); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	logger.Info("export written",
		"tiers", result.TierCount,
		"format", format,
	)
	return nil
}
