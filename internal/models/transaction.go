package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one spreadsheet row as read from disk, before any parsing.
type RawRow struct {
	CustomerID  string
	InvoiceID   string
	Description string
	Quantity    string
	Price       string
	InvoiceDate string
}

type Transaction struct {
	CustomerID  string
	InvoiceID   string
	Description string
	Quantity    int64
	Price       decimal.Decimal
	InvoiceDate time.Time
	TotalPrice  decimal.Decimal
	Year        int
	Month       time.Month
	Day         int
	Weekday     string
}

type MonthlySales struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Date       time.Time       `json:"date"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type ProductQuantity struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
}

type CustomerRFM struct {
	CustomerID string          `json:"customer_id"`
	Recency    int             `json:"recency"`
	Frequency  int             `json:"frequency"`
	Monetary   decimal.Decimal `json:"monetary"`
	RScore     int             `json:"r_score"`
	FScore     int             `json:"f_score"`
	MScore     int             `json:"m_score"`
	RFMScore   string          `json:"rfm_score"`
	Segment    Segment         `json:"segment"`
}

type SegmentCount struct {
	Segment   Segment `json:"segment"`
	Customers int     `json:"customers"`
}
