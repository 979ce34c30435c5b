// Package report renders a finished RFM run: chart images, the console
// segment table and a CSV of segment populations.
package report

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"retail-rfm/internal/models"
)

const (
	MonthlySalesFile = "monthly_sales.png"
	TopProductsFile  = "top_products.png"
	SegmentsFile     = "segments.csv"

	chartWidth  = 12 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var barColor = color.RGBA{R: 59, G: 82, B: 139, A: 255}

type Writer struct {
	outputDir string
	logger    *slog.Logger
}

func NewWriter(outputDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

// MonthlySalesChart draws total sales per month as a line with markers.
func (w *Writer) MonthlySalesChart(sales []models.MonthlySales) (string, error) {
	if len(sales) == 0 {
		return "", fmt.Errorf("no monthly sales to plot")
	}

	p := plot.New()
	p.Title.Text = "Monthly Sales Trend"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Total Sales (£)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	pts := make(plotter.XYs, len(sales))
	for i, s := range sales {
		pts[i].X = float64(s.Date.Unix())
		pts[i].Y = s.TotalPrice.InexactFloat64()
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return "", fmt.Errorf("build line: %w", err)
	}
	line.Color = barColor
	points.Color = barColor
	p.Add(plotter.NewGrid(), line, points)

	return w.save(p, MonthlySalesFile)
}

// TopProductsChart draws a horizontal bar per product with the best seller on
// top.
func (w *Writer) TopProductsChart(products []models.ProductQuantity) (string, error) {
	if len(products) == 0 {
		return "", fmt.Errorf("no products to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d Products by Quantity Sold", len(products))
	p.X.Label.Text = "Total Quantity"
	p.Y.Label.Text = "Product"

	// NominalY places the first label at the bottom.
	values := make(plotter.Values, len(products))
	labels := make([]string, len(products))
	for i, prod := range products {
		j := len(products) - 1 - i
		values[j] = float64(prod.Quantity)
		labels[j] = prod.Description
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return "", fmt.Errorf("build bars: %w", err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	return w.save(p, TopProductsFile)
}

func (w *Writer) save(p *plot.Plot, name string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.outputDir, name)
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	w.logger.Info("chart written", "path", path)
	return path, nil
}

// SegmentsCSV writes the segment population table as CSV.
func (w *Writer) SegmentsCSV(counts []models.SegmentCount) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.outputDir, SegmentsFile)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", SegmentsFile, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Write([]string{"Segment", "Customers"})
	for _, c := range counts {
		cw.Write([]string{c.Segment.String(), strconv.Itoa(c.Customers)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", SegmentsFile, err)
	}

	w.logger.Info("segment table written", "path", path)
	return path, nil
}

// PrintSegments writes the segment population table for the console.
func PrintSegments(out io.Writer, counts []models.SegmentCount) error {
	if _, err := fmt.Fprintln(out, "\nCustomer segment distribution:"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Segment\tCustomers\t")
	total := 0
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\t\n", c.Segment, c.Customers)
		total += c.Customers
	}
	fmt.Fprintf(tw, "Total\t%d\t\n", total)
	return tw.Flush()
}
