package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-rfm/internal/models"
	"retail-rfm/internal/services"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestRender_SegmentTable(t *testing.T) {
	html, err := render(segmentTableTemplate, []models.SegmentCount{
		{Segment: models.Hibernating, Customers: 1523},
		{Segment: models.BigSpenders, Customers: 87},
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	expected := []string{
		`<div id="segments-content">`,
		`<table class="modern-table">`,
		"<th>Segment</th>",
		"<th>Customers</th>",
		"Hibernating",
		"1523",
		"Big Spenders",
		"87",
	}
	for _, content := range expected {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}
}

func TestRender_MonthlyTable(t *testing.T) {
	html, err := render(monthlyTableTemplate, []models.MonthlySales{
		{Year: 2010, Month: 12, Date: time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC), TotalPrice: decimal.RequireFromString("1234.5")},
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	for _, content := range []string{`<div id="monthly-content">`, "2010-12", "1234.50"} {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}
}

func TestRender_ProductsTableEscapes(t *testing.T) {
	html, err := render(productsTableTemplate, []models.ProductQuantity{
		{Description: "<script>alert(1)</script>", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Error("product description should be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("expected escaped description, got %s", html)
	}
}

func TestSSEHandlers_Endpoints(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(t), testLogger())

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		signalKey string
		elementID string
		content   string
	}{
		{"segments", handlers.HandleSegments, "segmentsData", "segments-content", "Loyal Customers"},
		{"top products", handlers.HandleTopProducts, "productsData", "products-content", "WHITE HEART"},
		{"monthly sales", handlers.HandleMonthlySales, "monthlyData", "monthly-content", "2010-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sse/"+strings.ReplaceAll(tt.name, " ", "-"), nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}

			body := w.Body.String()
			for _, want := range []string{"event:", "data:", tt.signalKey, tt.elementID, tt.content} {
				if !strings.Contains(body, want) {
					t.Errorf("expected body to contain %q", want)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all", nil)
	w := httptest.NewRecorder()

	handlers.HandleRefreshAll(w, req)

	body := w.Body.String()
	for _, signal := range []string{"segmentsData", "productsData", "monthlyData"} {
		if !strings.Contains(body, signal) {
			t.Errorf("expected body to contain signal %q", signal)
		}
	}
	for _, id := range []string{"segments-content", "products-content", "monthly-content"} {
		if !strings.Contains(body, id) {
			t.Errorf("expected body to contain element %q", id)
		}
	}
}

func TestSSEHandlers_EmptyAnalytics(t *testing.T) {
	handlers := NewSSEHandlers(services.NewAnalytics(testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all", nil)
	w := httptest.NewRecorder()

	handlers.HandleRefreshAll(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "<table") {
		t.Error("expected empty tables to be rendered")
	}
}
