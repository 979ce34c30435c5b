package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	apperrors "retail-rfm/internal/errors"
	"retail-rfm/internal/models"
)

const header = "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_CSV(t *testing.T) {
	content := header + "\n" +
		"489434,85048,15CM CHRISTMAS GLASS BALL 20 LIGHTS,12,2009-12-01 07:45:00,6.95,13085,United Kingdom\n" +
		",,,,,,,\n" +
		"489435,22350,CAT BOWL ,12,2009-12-01 07:46:00,2.55,,United Kingdom\n"
	path := writeTemp(t, "retail.csv", content)

	rows, err := New(testLogger()).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []models.RawRow{
		{
			CustomerID:  "13085",
			InvoiceID:   "489434",
			Description: "15CM CHRISTMAS GLASS BALL 20 LIGHTS",
			Quantity:    "12",
			Price:       "6.95",
			InvoiceDate: "2009-12-01 07:45:00",
		},
		{
			CustomerID:  "",
			InvoiceID:   "489435",
			Description: "CAT BOWL",
			Quantity:    "12",
			Price:       "2.55",
			InvoiceDate: "2009-12-01 07:46:00",
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Invoice", "Description", "Quantity", "InvoiceDate", "Price", "Customer ID"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]any{"489434", "WHITE CHERRY LIGHTS", 6, "2009-12-01 07:45:00", 6.75, "13085"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rows, err := New(testLogger()).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []models.RawRow{{
		CustomerID:  "13085",
		InvoiceID:   "489434",
		Description: "WHITE CHERRY LIGHTS",
		Quantity:    "6",
		Price:       "6.75",
		InvoiceDate: "2009-12-01 07:45:00",
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.xlsx") },
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "empty file",
			path:     func(t *testing.T) string { return writeTemp(t, "empty.csv", "") },
			wantCode: apperrors.CodeEmptyFile,
		},
		{
			name:     "header only",
			path:     func(t *testing.T) string { return writeTemp(t, "header.csv", header+"\n") },
			wantCode: apperrors.CodeEmptyFile,
		},
		{
			name:     "missing column",
			path:     func(t *testing.T) string { return writeTemp(t, "cols.csv", "Invoice,Quantity\n1,2\n") },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unsupported format",
			path:     func(t *testing.T) string { return writeTemp(t, "data.json", "{}") },
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testLogger()).Load(context.Background(), tt.path(t))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("Load() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	path := writeTemp(t, "retail.csv", header+"\n489434,85048,X,1,2009-12-01 07:45:00,1,13085,UK\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(testLogger()).Load(ctx, path); err != context.Canceled {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}
