package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/cooccur"
	"github.com/cloudbill/billscan/pkg/costbucket"
	"github.com/cloudbill/billscan/pkg/outlier"
	"github.com/cloudbill/billscan/pkg/rolling"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatGroups implements Formatter.FormatGroups.
func (f *tableFormatter) FormatGroups(w io.Writer, res *analyze.Result, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	if err := writeHeader(w, "Cost Statistics", f.config.Compact); err != nil {
		return err
	}

	// Build header.
	header := make([]string, 0, len(dimensions)+5)
	header = append(header, dimensions...)
	header = append(header, "Records", "Total", "Mean", "Min/Max")
	if f.config.ShowSpread {
		header = append(header, "StdDev")
	}

	keys := make([]string, 0, len(res.Groups))
	for key := range res.Groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	shown, hidden := capRows(len(keys), f.config.MaxRows)

	// Build rows.
	rows := make([][]string, 0, shown)
	for _, key := range keys[:shown] {
		stats := res.Groups[key]
		row := make([]string, len(header))

		// Split composite keys into dimension columns.
		parts := analyze.SplitKey(key)
		for i := 0; i < len(dimensions); i++ {
			if i < len(parts) {
				row[i] = parts[i]
			}
		}

		row[len(dimensions)] = formatCount(stats.Count)
		row[len(dimensions)+1] = formatMoney(stats.Sum)
		row[len(dimensions)+2] = formatFloat(stats.Mean, 2)
		row[len(dimensions)+3] = fmt.Sprintf("%s/%s",
			formatMoney(stats.Min),
			formatMoney(stats.Max))
		if f.config.ShowSpread {
			row[len(dimensions)+4] = formatStdDev(stats.StdDev)
		}

		rows = append(rows, row)
	}

	if err := f.writeTable(w, header, rows); err != nil {
		return err
	}

	if err := writeHidden(w, hidden); err != nil {
		return err
	}

	if !f.config.Compact {
		if _, err := fmt.Fprintf(w, "Scanned %s records (%s excluded)\n",
			formatCount(int64(res.Scanned)),
			formatCount(int64(res.Excluded))); err != nil {
			return err
		}
	}

	return nil
}

// FormatOutliers implements Formatter.FormatOutliers.
func (f *tableFormatter) FormatOutliers(w io.Writer, outliers []outlier.Outlier) error {
	if err := writeHeader(w, "Cost Outliers", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Rank", "Group", "Project", "Cost", "Group Mean", "Z-Score"}

	shown, hidden := capRows(len(outliers), f.config.MaxRows)

	rows := make([][]string, shown)
	for i, o := range outliers[:shown] {
		rows[i] = []string{
			fmt.Sprintf("#%d", i+1),
			o.Group,
			recordProject(o.Record),
			formatMoney(o.Cost),
			formatFloat(o.GroupMean, 2),
			formatFloat(o.Z, 2),
		}
	}

	if err := f.writeTable(w, header, rows); err != nil {
		return err
	}

	return writeHidden(w, hidden)
}

// FormatTrend implements Formatter.FormatTrend.
func (f *tableFormatter) FormatTrend(w io.Writer, rows []rolling.Row, windows []int) error {
	if err := writeHeader(w, "Daily Cost Trend", f.config.Compact); err != nil {
		return err
	}

	header := make([]string, 0, len(windows)+3)
	header = append(header, "Day", "Group", "Daily Cost")
	for _, win := range windows {
		header = append(header, fmt.Sprintf("%dd Avg", win))
	}

	shown, hidden := capRows(len(rows), f.config.MaxRows)

	tableRows := make([][]string, shown)
	for i, row := range rows[:shown] {
		cells := make([]string, 0, len(header))
		cells = append(cells,
			row.Day.Format("2006-01-02"),
			row.Group,
			formatMoney(row.DailyCost))
		for _, avg := range row.Averages {
			cells = append(cells, formatFloat(avg, 2))
		}
		tableRows[i] = cells
	}

	if err := f.writeTable(w, header, tableRows); err != nil {
		return err
	}

	return writeHidden(w, hidden)
}

// FormatPairs implements Formatter.FormatPairs.
func (f *tableFormatter) FormatPairs(w io.Writer, pairs []cooccur.Pair) error {
	if err := writeHeader(w, "Service Pairs", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Service A", "Service B", "Projects", "Avg Combined Cost"}

	shown, hidden := capRows(len(pairs), f.config.MaxRows)

	rows := make([][]string, shown)
	for i, p := range pairs[:shown] {
		rows[i] = []string{
			p.EntityA,
			p.EntityB,
			formatCount(int64(p.Count)),
			formatFloat(p.AvgCombinedCost, 2),
		}
	}

	if err := f.writeTable(w, header, rows); err != nil {
		return err
	}

	return writeHidden(w, hidden)
}

// FormatBuckets implements Formatter.FormatBuckets.
func (f *tableFormatter) FormatBuckets(w io.Writer, rows []costbucket.Row) error {
	if err := writeHeader(w, "Cost Distribution", f.config.Compact); err != nil {
		return err
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}

	header := []string{"Range", "Records", "Share", "Total"}

	tableRows := make([][]string, len(rows))
	for i, row := range rows {
		share := "0.0%"
		if total > 0 {
			share = fmt.Sprintf("%.1f%%", float64(row.Count)/float64(total)*100)
		}
		tableRows[i] = []string{
			row.Label,
			formatCount(row.Count),
			share,
			formatMoney(row.Sum),
		}
	}

	return f.writeTable(w, header, tableRows)
}

// recordProject extracts a record's project ID for display.
func recordProject(r billing.Record) string {
	if r.Project == nil {
		return ""
	}
	return r.Project.ID
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	f.fitWidths(w, widths)

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// fitWidths shrinks the widest columns until the table fits the
// terminal, when the writer is one. Columns never shrink below 8.
func (f *tableFormatter) fitWidths(w io.Writer, widths []int) {
	limit := terminalWidth(w)
	if limit <= 0 {
		return
	}

	gap := 2
	if f.config.Compact {
		gap = 1
	}

	for {
		total := gap * (len(widths) - 1)
		for _, width := range widths {
			total += width
		}
		if total <= limit {
			return
		}

		widest := 0
		for i, width := range widths {
			if width > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 8 {
			return
		}
		widths[widest]--
	}
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		if i < len(widths) && len(cell) > widths[i] {
			cell = truncateCell(cell, widths[i])
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// truncateCell shortens a cell to fit its column width.
func truncateCell(cell string, width int) string {
	if width <= 3 {
		return cell[:width]
	}
	return cell[:width-3] + "..."
}
