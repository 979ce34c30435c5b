// Package loader reads retail transaction exports from disk into raw rows.
//
// Both the original .xlsx export (first worksheet) and a .csv rendering of it
// are accepted. Cells are kept as strings; parsing and validation happen in
// the cleaning stage so that a single malformed cell drops one row rather than
// failing the whole load.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "retail-rfm/internal/errors"
	"retail-rfm/internal/models"
)

// Column headers required in the first row of the input.
const (
	ColCustomerID  = "Customer ID"
	ColInvoice     = "Invoice"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColPrice       = "Price"
	ColInvoiceDate = "InvoiceDate"
)

var requiredColumns = []string{ColCustomerID, ColInvoice, ColDescription, ColQuantity, ColPrice, ColInvoiceDate}

type Loader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads every data row of path. A missing file yields a NOT_FOUND error
// and a file without data rows yields EMPTY_FILE. Errors are returned, not
// logged; the caller's stage span records them.
func (l *Loader) Load(ctx context.Context, path string) ([]models.RawRow, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileNotFound(err, path)
		}
		return nil, apperrors.InternalWrap(err, "stat input file")
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unsupported input format %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, apperrors.InternalWrap(err, "read input file")
	}

	if len(records) == 0 {
		return nil, apperrors.EmptyFile(path)
	}

	index, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]models.RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if i%10000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, models.RawRow{
			CustomerID:  cell(rec, index[ColCustomerID]),
			InvoiceID:   cell(rec, index[ColInvoice]),
			Description: cell(rec, index[ColDescription]),
			Quantity:    cell(rec, index[ColQuantity]),
			Price:       cell(rec, index[ColPrice]),
			InvoiceDate: cell(rec, index[ColInvoiceDate]),
		})
	}

	if len(rows) == 0 {
		return nil, apperrors.EmptyFile(path)
	}

	l.logger.Info("dataset loaded", "path", path, "rows", len(rows), "columns", len(records[0]))
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	// Raw values keep dates as serial numbers instead of the display format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(requiredColumns))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, col := range requiredColumns {
			if strings.EqualFold(h, col) {
				index[col] = i
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("missing required columns: " + strings.Join(missing, ", "))
	}
	return index, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
