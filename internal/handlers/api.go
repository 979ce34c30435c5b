package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"retail-rfm/internal/errors"
	"retail-rfm/internal/models"
	"retail-rfm/internal/observability"
	"retail-rfm/internal/services"
)

const (
	cacheControl       = "public, max-age=300"
	defaultProductRows = services.DefaultTopProducts
	defaultCustomers   = 100
	maxLimit           = 1000
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.MonthlySales()
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultProductRows)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	data := h.analytics.TopProducts(limit)
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.Segments()
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

// HandleCustomers lists scored customers. Optional query parameters:
// segment (display name, case-insensitive) and limit.
func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit, err := parseLimit(r, defaultCustomers)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	var segment *models.Segment
	if name := r.URL.Query().Get("segment"); name != "" {
		s, err := models.ParseSegment(name)
		if err != nil {
			errors.WriteError(w, h.logger, errors.ValidationWrap(err, "invalid segment"), requestID)
			return
		}
		segment = &s
	}

	data := h.analytics.Customers(segment, limit)
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, errors.Validation("limit must be an integer between 1 and " + strconv.Itoa(maxLimit))
	}
	return limit, nil
}
