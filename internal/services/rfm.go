package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "retail-rfm/internal/errors"
	"retail-rfm/internal/models"
)

const day = 24 * time.Hour

// ReferenceDate is one day after the latest invoice in txs.
func ReferenceDate(txs []models.Transaction) time.Time {
	var latest time.Time
	for _, tx := range txs {
		if tx.InvoiceDate.After(latest) {
			latest = tx.InvoiceDate
		}
	}
	return latest.Add(day)
}

type customerAgg struct {
	last     time.Time
	invoices map[string]struct{}
	monetary decimal.Decimal
}

// ComputeRFM derives one scored and segmented record per customer, ordered by
// customer ID. It also returns the reference date recency was measured from.
func ComputeRFM(txs []models.Transaction) ([]models.CustomerRFM, time.Time, error) {
	if len(txs) == 0 {
		return nil, time.Time{}, apperrors.EmptyDataset("no transactions to score")
	}

	ref := ReferenceDate(txs)

	groups := make(map[string]*customerAgg)
	for _, tx := range txs {
		agg, ok := groups[tx.CustomerID]
		if !ok {
			agg = &customerAgg{invoices: make(map[string]struct{})}
			groups[tx.CustomerID] = agg
		}
		if tx.InvoiceDate.After(agg.last) {
			agg.last = tx.InvoiceDate
		}
		agg.invoices[tx.InvoiceID] = struct{}{}
		agg.monetary = agg.monetary.Add(tx.TotalPrice)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareCustomerIDs)

	customers := make([]models.CustomerRFM, len(ids))
	recency := make([]float64, len(ids))
	frequency := make([]float64, len(ids))
	monetary := make([]float64, len(ids))

	for i, id := range ids {
		agg := groups[id]
		customers[i] = models.CustomerRFM{
			CustomerID: id,
			Recency:    int(ref.Sub(agg.last) / day),
			Frequency:  len(agg.invoices),
			Monetary:   agg.monetary,
		}
		recency[i] = float64(customers[i].Recency)
		frequency[i] = float64(customers[i].Frequency)
		monetary[i] = agg.monetary.InexactFloat64()
	}

	rBins, err := quintileBins("recency", recency)
	if err != nil {
		return nil, ref, err
	}
	// Frequency is binned on ranks, which are always distinct, so the raw
	// invoice counts are checked here.
	if n := distinctCount(frequency); n < quintiles {
		return nil, ref, apperrors.InsufficientVariance("frequency", n)
	}
	fBins, err := quintileBins("frequency", rankFirst(frequency))
	if err != nil {
		return nil, ref, err
	}
	mBins, err := quintileBins("monetary", monetary)
	if err != nil {
		return nil, ref, err
	}

	for i := range customers {
		c := &customers[i]
		c.RScore = quintiles - rBins[i]
		c.FScore = fBins[i] + 1
		c.MScore = mBins[i] + 1
		c.RFMScore = fmt.Sprintf("%d%d%d", c.RScore, c.FScore, c.MScore)
		c.Segment = models.ClassifySegment(c.RFMScore)
	}

	return customers, ref, nil
}

// CountSegments tallies customers per segment, largest first. Segments with
// no customers are omitted.
func CountSegments(customers []models.CustomerRFM) []models.SegmentCount {
	counts := make(map[models.Segment]int)
	for _, c := range customers {
		counts[c.Segment]++
	}

	result := make([]models.SegmentCount, 0, len(counts))
	for _, s := range models.AllSegments {
		if n := counts[s]; n > 0 {
			result = append(result, models.SegmentCount{Segment: s, Customers: n})
		}
	}
	slices.SortStableFunc(result, func(a, b models.SegmentCount) int {
		return b.Customers - a.Customers
	})
	return result
}

// compareCustomerIDs orders numeric IDs numerically and everything else
// lexically after them.
func compareCustomerIDs(a, b string) int {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	switch {
	case errA == nil && errB == nil:
		if c := da.Cmp(db); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
