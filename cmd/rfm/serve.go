package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"retail-rfm/internal/config"
	"retail-rfm/internal/middleware"
	"retail-rfm/internal/server"
	"retail-rfm/internal/services"
	"retail-rfm/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 2 * time.Minute
	cacheMaxAge   = "public, max-age=300"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline once and serve the results as a dashboard",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func newHandler(analytics *services.Analytics, logger *slog.Logger, security config.SecurityConfig) http.Handler {
	srv := server.NewServer(analytics, logger, &server.TemplateHandlers{
		Dashboard: handleDashboard,
	})

	rateLimiter := middleware.NewRateLimiter(security)

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Observe(logger, func() string { return analytics.Report().RunID }),
		middleware.SecurityHeaders(),
		middleware.CORS(security),
		middleware.ReadOnly(logger),
		middleware.TrustedProxy(security),
		middleware.RateLimit(rateLimiter, logger),
	)
	return chain(srv)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting application",
		"version", version,
		"input", cfg.Pipeline.InputFile,
		"addr", cfg.Address(),
	)

	analytics := services.NewAnalytics(logger)
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromFile(ctx, cfg.Pipeline.InputFile); err != nil {
		return err
	}
	logger.Info("data loaded", "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(analytics, logger, cfg.Security),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "run_id", analytics.Report().RunID)
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		return err
	}

	logger.Info("application stopped gracefully")
	return nil
}
