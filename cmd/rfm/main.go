package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"retail-rfm/internal/config"
	"retail-rfm/internal/observability"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rfm",
		Short: "RFM customer segmentation for online retail transactions",
		Long: `rfm loads an online retail transaction export, cleans it, scores every
customer on recency, frequency and monetary value, and assigns a segment.

Without a subcommand it runs the report: monthly sales and top product charts
are written to the output directory and the segment table is printed.`,
		Version:       version,
		SilenceUsage: true,
		RunE:         runReport,
	}

	root.AddCommand(newReportCmd(), newServeCmd())
	return root
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	// Failures are logged where they occur; cobra prints the final error.
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
