// src/reports/writer.go
package reports

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/username/salesclaro/src/logger"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/pipeline"
	"github.com/username/salesclaro/src/utils"
)

const divider = "------------------------------------------------------------"

// WriteReport renders the human-readable run report.
func WriteReport(w io.Writer, result *pipeline.Result) error {
	m := result.Metrics

	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w, "                   SALES ANALYTICS REPORT")
	fmt.Fprintf(w, "           Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "           Run ID: %s\n", result.RunID)
	fmt.Fprintf(w, "           Records Processed: %d\n", len(result.Records))
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERALL SUMMARY")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "Total Revenue:       %s\n", m.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "Total Transactions:  %d\n", m.TotalTransactions)
	fmt.Fprintf(w, "Average Order Value: %s\n", m.AverageOrderValue.StringFixed(2))
	fmt.Fprintf(w, "Date Range:          %s\n", dateRange(m))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "REGION-WISE PERFORMANCE")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%-15s %-15s %-10s %-10s\n", "Region", "Revenue", "% Total", "Count")
	for _, reg := range m.Regions {
		fmt.Fprintf(w, "%-15s %-15s %-9.1f%% %-10d\n",
			reg.Region, reg.Revenue.StringFixed(2), reg.Share, reg.Count)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TOP 5 PRODUCTS")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%-6s %-12s %-25s %-10s %-15s\n", "Rank", "Product", "Name", "Qty", "Revenue")
	for i, p := range m.TopNProducts(5) {
		fmt.Fprintf(w, "%-6d %-12s %-25s %-10d %-15s\n",
			i+1, p.ProductID, truncate(p.ProductName, 24), p.Quantity, p.Revenue.StringFixed(2))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TOP 5 CUSTOMERS")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%-6s %-15s %-15s %-10s\n", "Rank", "Customer", "Total Spent", "Orders")
	for i, c := range m.TopNCustomers(5) {
		fmt.Fprintf(w, "%-6d %-15s %-15s %-10d\n",
			i+1, c.CustomerID, c.Revenue.StringFixed(2), c.Orders)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "DAILY SALES TREND")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%-15s %-15s %-10s %-12s\n", "Date", "Revenue", "Orders", "Unique Cust")
	for _, d := range m.Daily {
		fmt.Fprintf(w, "%-15s %-15s %-10d %-12d\n",
			d.Date.Format(utils.DefaultDateFormat), d.Revenue.StringFixed(2), d.Count, d.UniqueCustomers)
	}
	fmt.Fprintln(w)

	if best, ok := bestDay(m.Daily); ok {
		fmt.Fprintln(w, "PRODUCT PERFORMANCE ANALYSIS")
		fmt.Fprintln(w, divider)
		fmt.Fprintf(w, "Best Selling Day: %s (%s)\n",
			best.Date.Format(utils.DefaultDateFormat), best.Revenue.StringFixed(2))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "REJECTED LINES")
	fmt.Fprintln(w, divider)
	if len(result.Rejected) == 0 {
		fmt.Fprintln(w, "None")
	}
	for _, rej := range result.Rejected {
		fmt.Fprintf(w, "line %d [%s]: %s\n", rej.Line.Position, rej.Reason, rej.Line.Text)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ENRICHMENT SUMMARY")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "Distinct Products:  %d\n", result.Enrichment.DistinctProducts)
	fmt.Fprintf(w, "Enriched:           %d\n", result.Enrichment.Enriched)
	fmt.Fprintf(w, "Not Found:          %d\n", result.Enrichment.NotFound)
	fmt.Fprintf(w, "Lookup Failed:      %d\n", result.Enrichment.LookupFailed)
	fmt.Fprintf(w, "Skipped:            %d\n", result.Enrichment.Skipped)
	fmt.Fprintf(w, "Success Rate:       %.1f%%\n", result.Enrichment.SuccessRate)

	return nil
}

// WriteEnrichedData writes the enriched records as a pipe-delimited flat
// file, category appended as the last column. Records without a category
// carry the unavailable marker instead of being dropped.
func WriteEnrichedData(w io.Writer, records []models.EnrichedRecord) error {
	for i := range records {
		r := &records[i]
		_, err := fmt.Fprintf(w, "%s|%s|%s|%s|%d|%s|%s|%s|%s\n",
			r.TransactionID,
			r.Date.Format(utils.DefaultDateFormat),
			r.ProductID,
			r.ProductName,
			r.Quantity,
			r.UnitPrice.StringFixed(2),
			r.CustomerID,
			r.Region,
			r.OutputCategory(),
		)
		if err != nil {
			return fmt.Errorf("writing enriched record %s: %w", r.TransactionID, err)
		}
	}
	return nil
}

// SaveReport writes the report to disk, creating the directory if needed.
func SaveReport(path string, result *pipeline.Result) error {
	return saveTo(path, func(w io.Writer) error { return WriteReport(w, result) })
}

// SaveEnrichedData writes the enriched flat file to disk.
func SaveEnrichedData(path string, records []models.EnrichedRecord) error {
	return saveTo(path, func(w io.Writer) error { return WriteEnrichedData(w, records) })
}

func saveTo(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file %s: %w", path, err)
	}
	logger.L.Info("Output artifact written", "path", path)
	return nil
}

func dateRange(m models.MetricsSnapshot) string {
	if m.DateFrom.IsZero() {
		return "N/A"
	}
	return fmt.Sprintf("%s to %s",
		m.DateFrom.Format(utils.DefaultDateFormat), m.DateTo.Format(utils.DefaultDateFormat))
}

func bestDay(daily []models.DayStat) (models.DayStat, bool) {
	if len(daily) == 0 {
		return models.DayStat{}, false
	}
	best := daily[0]
	for _, d := range daily[1:] {
		if d.Revenue.GreaterThan(best.Revenue) {
			best = d
		}
	}
	return best, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
