package display

import (
	"fmt"
	"io"
	"sort"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/cooccur"
	"github.com/cloudbill/billscan/pkg/costbucket"
	"github.com/cloudbill/billscan/pkg/outlier"
	"github.com/cloudbill/billscan/pkg/rolling"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatGroups implements Formatter.FormatGroups.
func (f *simpleFormatter) FormatGroups(w io.Writer, res *analyze.Result, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	keys := make([]string, 0, len(res.Groups))
	for key := range res.Groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	shown, hidden := capRows(len(keys), f.config.MaxRows)
	for _, key := range keys[:shown] {
		stats := res.Groups[key]
		if _, err := fmt.Fprintf(w, "%s: %s records, %s total (avg: %s)\n",
			key,
			formatCount(stats.Count),
			formatMoney(stats.Sum),
			formatFloat(stats.Mean, 2)); err != nil {
			return err
		}
	}

	return writeHidden(w, hidden)
}

// FormatOutliers implements Formatter.FormatOutliers.
func (f *simpleFormatter) FormatOutliers(w io.Writer, outliers []outlier.Outlier) error {
	shown, hidden := capRows(len(outliers), f.config.MaxRows)
	for i, o := range outliers[:shown] {
		if _, err := fmt.Fprintf(w, "#%d: %s cost %s (group mean %s, z=%s)\n",
			i+1,
			o.Group,
			formatMoney(o.Cost),
			formatFloat(o.GroupMean, 2),
			formatFloat(o.Z, 2)); err != nil {
			return err
		}
	}

	return writeHidden(w, hidden)
}

// FormatTrend implements Formatter.FormatTrend.
func (f *simpleFormatter) FormatTrend(w io.Writer, rows []rolling.Row, windows []int) error {
	shown, hidden := capRows(len(rows), f.config.MaxRows)
	for _, row := range rows[:shown] {
		if _, err := fmt.Fprintf(w, "%s %s: %s",
			row.Day.Format("2006-01-02"),
			row.Group,
			formatMoney(row.DailyCost)); err != nil {
			return err
		}
		for i, avg := range row.Averages {
			label := ""
			if i < len(windows) {
				label = fmt.Sprintf("%dd ", windows[i])
			}
			if _, err := fmt.Fprintf(w, " | %savg %s", label, formatFloat(avg, 2)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return writeHidden(w, hidden)
}

// FormatPairs implements Formatter.FormatPairs.
func (f *simpleFormatter) FormatPairs(w io.Writer, pairs []cooccur.Pair) error {
	shown, hidden := capRows(len(pairs), f.config.MaxRows)
	for _, p := range pairs[:shown] {
		if _, err := fmt.Fprintf(w, "%s + %s: %s projects, avg combined %s\n",
			p.EntityA,
			p.EntityB,
			formatCount(int64(p.Count)),
			formatFloat(p.AvgCombinedCost, 2)); err != nil {
			return err
		}
	}

	return writeHidden(w, hidden)
}

// FormatBuckets implements Formatter.FormatBuckets.
func (f *simpleFormatter) FormatBuckets(w io.Writer, rows []costbucket.Row) error {
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s: %s records, %s total\n",
			row.Label,
			formatCount(row.Count),
			formatMoney(row.Sum)); err != nil {
			return err
		}
	}

	return nil
}
