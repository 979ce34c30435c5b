package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"retail-rfm/internal/models"
)

// CleanStats counts why raw rows were dropped.
type CleanStats struct {
	RawRows         int `json:"raw_rows"`
	MissingCustomer int `json:"missing_customer"`
	Unparseable     int `json:"unparseable"`
	NonPositive     int `json:"non_positive"`
	Kept            int `json:"kept"`
}

var invoiceDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

// Clean drops rows without a customer, with non-positive quantity or price,
// or with cells that cannot be parsed, and derives the total price and
// calendar fields for the rest. Dropping every row is not an error.
func Clean(rows []models.RawRow) ([]models.Transaction, CleanStats) {
	stats := CleanStats{RawRows: len(rows)}
	txs := make([]models.Transaction, 0, len(rows))

	for _, row := range rows {
		customerID := normalizeCustomerID(row.CustomerID)
		if customerID == "" {
			stats.MissingCustomer++
			continue
		}

		quantity, okQty := parseQuantity(row.Quantity)
		price, errPrice := decimal.NewFromString(row.Price)
		date, okDate := parseInvoiceDate(row.InvoiceDate)
		if !okQty || errPrice != nil || !okDate {
			stats.Unparseable++
			continue
		}

		if quantity <= 0 || !price.IsPositive() {
			stats.NonPositive++
			continue
		}

		txs = append(txs, models.Transaction{
			CustomerID:  customerID,
			InvoiceID:   row.InvoiceID,
			Description: row.Description,
			Quantity:    quantity,
			Price:       price,
			InvoiceDate: date,
			TotalPrice:  price.Mul(decimal.NewFromInt(quantity)),
			Year:        date.Year(),
			Month:       date.Month(),
			Day:         date.Day(),
			Weekday:     date.Weekday().String(),
		})
	}

	stats.Kept = len(txs)
	return txs, stats
}

// normalizeCustomerID turns spreadsheet floats such as "13085.0" into "13085".
func normalizeCustomerID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return ""
	}
	if d, err := decimal.NewFromString(raw); err == nil && d.IsInteger() {
		return d.String()
	}
	return raw
}

func parseQuantity(raw string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}

// parseInvoiceDate accepts Excel serial dates as well as common text layouts.
// Times without a zone are taken as UTC.
func parseInvoiceDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC().Round(time.Second), true
	}

	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
