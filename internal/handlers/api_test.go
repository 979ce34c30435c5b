package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-rfm/internal/models"
	"retail-rfm/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTx(customer, invoice, desc string, qty int64, price string, date time.Time) models.Transaction {
	p := decimal.RequireFromString(price)
	return models.Transaction{
		CustomerID:  customer,
		InvoiceID:   invoice,
		Description: desc,
		Quantity:    qty,
		Price:       p,
		InvoiceDate: date,
		TotalPrice:  p.Mul(decimal.NewFromInt(qty)),
		Year:        date.Year(),
		Month:       date.Month(),
		Day:         date.Day(),
		Weekday:     date.Weekday().String(),
	}
}

// createTestAnalytics yields segments Others 3, Loyal Customers 1,
// Big Spenders 1.
func createTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	day := func(m time.Month, d int) time.Time { return time.Date(2010, m, d, 10, 0, 0, 0, time.UTC) }

	txs := []models.Transaction{
		testTx("12346", "I1", "WHITE HEART", 10, "10", day(time.December, 9)),
		testTx("12347", "I2", "LUNCH BAG", 2, "5", day(time.December, 1)),
		testTx("12347", "I3", "GLASS JAR", 1, "100", day(time.December, 7)),
		testTx("12348", "I4", "LUNCH BAG", 1, "5", day(time.December, 3)),
		testTx("12348", "I5", "LUNCH BAG", 1, "5", day(time.December, 4)),
		testTx("12348", "I6", "LUNCH BAG", 1, "10", day(time.December, 5)),
	}
	for i, d := range []int{27, 28, 29, 30} {
		txs = append(txs, testTx("12349", fmt.Sprintf("I%d", 7+i), "PARTY BUNTING", 1, "1.10", day(time.November, d)))
	}
	for i := range 5 {
		txs = append(txs, testTx("12350", fmt.Sprintf("I%d", 11+i), "CLOCK", 1, "300", day(time.November, 1)))
	}

	a := services.NewAnalytics(testLogger())
	err := a.SetData(txs)
	if err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	handlers := NewAPIHandlers(analytics, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_CachedEndpoints(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
		wantLen int
	}{
		{"monthly sales", "/api/monthly-sales", handlers.HandleMonthlySales, 2},
		{"top products", "/api/top-products", handlers.HandleTopProducts, 5},
		{"top products limited", "/api/top-products?limit=2", handlers.HandleTopProducts, 2},
		{"segments", "/api/segments", handlers.HandleSegments, 3},
		{"customers", "/api/customers", handlers.HandleCustomers, 5},
		{"customers by segment", "/api/customers?segment=others", handlers.HandleCustomers, 3},
		{"customers limited", "/api/customers?segment=Others&limit=1", handlers.HandleCustomers, 1},
		{"empty segment", "/api/customers?segment=Champions", handlers.HandleCustomers, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}

			env := decodeEnvelope(t, w)
			if !env.Success {
				t.Error("expected success=true in response")
			}
			var items []json.RawMessage
			if err := json.Unmarshal(env.Data, &items); err != nil {
				t.Fatalf("data is not an array: %v", err)
			}
			if len(items) != tt.wantLen {
				t.Errorf("got %d items, want %d", len(items), tt.wantLen)
			}
		})
	}
}

func TestAPIHandlers_HandleTopProducts_Order(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/top-products?limit=3", nil)
	w := httptest.NewRecorder()
	handlers.HandleTopProducts(w, req)

	var products []models.ProductQuantity
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &products); err != nil {
		t.Fatal(err)
	}

	want := []string{"WHITE HEART", "CLOCK", "LUNCH BAG"}
	for i, p := range products {
		if p.Description != want[i] {
			t.Errorf("products[%d] = %q, want %q", i, p.Description, want[i])
		}
	}
}

func TestAPIHandlers_HandleSegments_Body(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/segments", nil)
	w := httptest.NewRecorder()
	handlers.HandleSegments(w, req)

	var counts []models.SegmentCount
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &counts); err != nil {
		t.Fatal(err)
	}

	want := []models.SegmentCount{
		{Segment: models.Others, Customers: 3},
		{Segment: models.LoyalCustomers, Customers: 1},
		{Segment: models.BigSpenders, Customers: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %d segments, want %d", len(counts), len(want))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("segments[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestAPIHandlers_ValidationErrors(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
	}{
		{"unknown segment", "/api/customers?segment=VIP", handlers.HandleCustomers},
		{"non-numeric limit", "/api/customers?limit=abc", handlers.HandleCustomers},
		{"zero limit", "/api/top-products?limit=0", handlers.HandleTopProducts},
		{"limit too large", "/api/top-products?limit=5000", handlers.HandleTopProducts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			env := decodeEnvelope(t, w)
			if env.Success {
				t.Error("expected success=false")
			}
			if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %+v", env.Error)
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var health map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health["status"])
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("timestamp is not RFC3339: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}

	// JSON numbers decode as float64.
	wantCounts := map[string]float64{
		"transactions": 15,
		"customers":    5,
		"products":     5,
		"months":       2,
		"segments":     3,
	}
	for key, want := range wantCounts {
		if got, ok := stats[key].(float64); !ok || got != want {
			t.Errorf("stats[%q] = %v, want %v", key, stats[key], want)
		}
	}
	if stats["run_id"] == "" {
		t.Error("run_id should be set")
	}
}

func TestAPIHandlers_EmptyAnalytics(t *testing.T) {
	handlers := NewAPIHandlers(services.NewAnalytics(testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	w := httptest.NewRecorder()
	handlers.HandleCustomers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got := string(decodeEnvelope(t, w).Data); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}
