package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-rfm/internal/loader"
	"retail-rfm/internal/models"
	"retail-rfm/internal/observability"
)

const DefaultTopProducts = 10

// Report is everything one pipeline run produces. It is never mutated after
// it has been built.
type Report struct {
	RunID         string                   `json:"run_id"`
	Source        string                   `json:"source"`
	GeneratedAt   time.Time                `json:"generated_at"`
	ReferenceDate time.Time                `json:"reference_date"`
	Clean         CleanStats               `json:"clean"`
	MonthlySales  []models.MonthlySales    `json:"monthly_sales"`
	TopProducts   []models.ProductQuantity `json:"top_products"`
	Customers     []models.CustomerRFM     `json:"customers"`
	Segments      []models.SegmentCount    `json:"segments"`
}

type Analytics struct {
	mu     sync.RWMutex
	report *Report
	loader *loader.Loader
	logger *slog.Logger
}

func NewAnalytics(logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		report: &Report{},
		loader: loader.New(logger),
		logger: logger,
	}
}

// LoadFromFile runs the full pipeline against the dataset at path. On error
// the previously held report is kept unchanged.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	ctx, span := observability.StartSpan(ctx, "pipeline")
	span.SetTag("source", path)

	report, err := a.run(ctx, path)
	if err != nil {
		// The failing stage has already logged the error.
		span.SetError(err)
		span.Finish()
		return err
	}

	a.mu.Lock()
	a.report = report
	a.mu.Unlock()

	span.FinishAndLog(a.logger, "pipeline complete",
		"customers", len(report.Customers),
		"transactions", report.Clean.Kept,
	)
	return nil
}

func (a *Analytics) run(ctx context.Context, path string) (*Report, error) {
	var rows []models.RawRow
	err := a.stage(ctx, "load", func(ctx context.Context, span *observability.Span) error {
		var err error
		rows, err = a.loader.Load(ctx, path)
		span.SetTag("rows", strconv.Itoa(len(rows)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	var txs []models.Transaction
	var stats CleanStats
	a.step(ctx, "clean", func(span *observability.Span) {
		txs, stats = Clean(rows)
		span.SetTag("kept", strconv.Itoa(stats.Kept))
		span.SetTag("dropped", strconv.Itoa(stats.RawRows-stats.Kept))
	})

	report, err := a.build(ctx, txs)
	if err != nil {
		return nil, err
	}
	report.Source = path
	report.Clean = stats
	return report, nil
}

// SetData builds a report directly from already cleaned transactions.
func (a *Analytics) SetData(txs []models.Transaction) error {
	report, err := a.build(context.Background(), txs)
	if err != nil {
		return err
	}
	report.Clean = CleanStats{RawRows: len(txs), Kept: len(txs)}

	a.mu.Lock()
	a.report = report
	a.mu.Unlock()
	return nil
}

func (a *Analytics) build(ctx context.Context, txs []models.Transaction) (*Report, error) {
	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	a.step(ctx, "aggregate", func(span *observability.Span) {
		report.MonthlySales = MonthlySales(txs)
		report.TopProducts = TopProducts(txs, 0)
		span.SetTag("months", strconv.Itoa(len(report.MonthlySales)))
		span.SetTag("products", strconv.Itoa(len(report.TopProducts)))
	})

	err := a.stage(ctx, "rfm", func(ctx context.Context, span *observability.Span) error {
		customers, ref, err := ComputeRFM(txs)
		if err != nil {
			return err
		}
		report.Customers = customers
		report.ReferenceDate = ref
		report.Segments = CountSegments(customers)
		span.SetTag("customers", strconv.Itoa(len(customers)))
		span.SetTag("reference_date", ref.Format(time.DateOnly))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rfm: %w", err)
	}
	return report, nil
}

func (a *Analytics) stage(ctx context.Context, name string, fn func(context.Context, *observability.Span) error) error {
	ctx, span := observability.StartSpan(ctx, name)
	err := fn(ctx, span)
	if err != nil {
		span.SetError(err)
	}
	span.FinishAndLog(a.logger, "pipeline stage finished")
	return err
}

// step runs a stage that cannot fail.
func (a *Analytics) step(ctx context.Context, name string, fn func(*observability.Span)) {
	_, span := observability.StartSpan(ctx, name)
	fn(span)
	span.FinishAndLog(a.logger, "pipeline stage finished")
}

// MonthlySales sums total price per calendar month, oldest first.
func MonthlySales(txs []models.Transaction) []models.MonthlySales {
	type key struct {
		year  int
		month time.Month
	}
	groups := make(map[key]decimal.Decimal)
	for _, tx := range txs {
		k := key{tx.Year, tx.Month}
		groups[k] = groups[k].Add(tx.TotalPrice)
	}

	result := make([]models.MonthlySales, 0, len(groups))
	for k, total := range groups {
		result = append(result, models.MonthlySales{
			Year:       k.year,
			Month:      int(k.month),
			Date:       time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC),
			TotalPrice: total,
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlySales) int {
		return a.Date.Compare(b.Date)
	})
	return result
}

// TopProducts sums quantity per description, largest first, keeping at most
// n entries. n <= 0 keeps all of them. Rows without a description are not
// ranked.
func TopProducts(txs []models.Transaction, n int) []models.ProductQuantity {
	groups := make(map[string]int64)
	for _, tx := range txs {
		if tx.Description == "" {
			continue
		}
		groups[tx.Description] += tx.Quantity
	}

	result := make([]models.ProductQuantity, 0, len(groups))
	for desc, qty := range groups {
		result = append(result, models.ProductQuantity{Description: desc, Quantity: qty})
	}
	slices.SortFunc(result, func(a, b models.ProductQuantity) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.Description, b.Description)
	})

	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

func (a *Analytics) Report() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

func (a *Analytics) MonthlySales() []models.MonthlySales {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report.MonthlySales
}

func (a *Analytics) TopProducts(limit int) []models.ProductQuantity {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 || len(a.report.TopProducts) <= limit {
		return a.report.TopProducts
	}
	return a.report.TopProducts[:limit]
}

func (a *Analytics) Segments() []models.SegmentCount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report.Segments
}

// Customers returns scored customers, optionally restricted to one segment.
func (a *Analytics) Customers(segment *models.Segment, limit int) []models.CustomerRFM {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]models.CustomerRFM, 0)
	for _, c := range a.report.Customers {
		if segment != nil && c.Segment != *segment {
			continue
		}
		result = append(result, c)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"run_id":         a.report.RunID,
		"source":         a.report.Source,
		"generated_at":   a.report.GeneratedAt,
		"reference_date": a.report.ReferenceDate,
		"raw_rows":       a.report.Clean.RawRows,
		"transactions":   a.report.Clean.Kept,
		"customers":      len(a.report.Customers),
		"products":       len(a.report.TopProducts),
		"months":         len(a.report.MonthlySales),
		"segments":       len(a.report.Segments),
	}
}
