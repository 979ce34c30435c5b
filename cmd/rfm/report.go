package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"retail-rfm/internal/config"
	"retail-rfm/internal/report"
	"retail-rfm/internal/services"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Run the pipeline and write charts and the segment table",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting report",
		"version", version,
		"input", cfg.Pipeline.InputFile,
		"output_dir", cfg.Pipeline.OutputDir,
	)

	analytics := services.NewAnalytics(logger)
	if err := analytics.LoadFromFile(cmd.Context(), cfg.Pipeline.InputFile); err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), analytics, cfg.Pipeline, logger)
}

// writeReport renders a finished run. It is only reached once every pipeline
// stage succeeded.
func writeReport(out io.Writer, analytics *services.Analytics, cfg config.PipelineConfig, logger *slog.Logger) error {
	w := report.NewWriter(cfg.OutputDir, logger)

	if _, err := w.MonthlySalesChart(analytics.MonthlySales()); err != nil {
		return fmt.Errorf("monthly sales chart: %w", err)
	}
	if _, err := w.TopProductsChart(analytics.TopProducts(cfg.TopProducts)); err != nil {
		return fmt.Errorf("top products chart: %w", err)
	}

	segments := analytics.Segments()
	if cfg.WriteSegmentsCSV {
		if _, err := w.SegmentsCSV(segments); err != nil {
			return fmt.Errorf("segments csv: %w", err)
		}
	}

	return report.PrintSegments(out, segments)
}
