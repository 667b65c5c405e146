package display

import (
	"encoding/json"
	"io"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/cooccur"
	"github.com/cloudbill/billscan/pkg/costbucket"
	"github.com/cloudbill/billscan/pkg/outlier"
	"github.com/cloudbill/billscan/pkg/rolling"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// FormatGroups implements Formatter.FormatGroups.
func (f *jsonFormatter) FormatGroups(w io.Writer, res *analyze.Result, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	return f.encode(w, struct {
		Dimensions []string        `json:"dimensions"`
		Result     *analyze.Result `json:"result"`
	}{dimensions, res})
}

// FormatOutliers implements Formatter.FormatOutliers.
func (f *jsonFormatter) FormatOutliers(w io.Writer, outliers []outlier.Outlier) error {
	if outliers == nil {
		outliers = []outlier.Outlier{}
	}
	return f.encode(w, outliers)
}

// FormatTrend implements Formatter.FormatTrend.
func (f *jsonFormatter) FormatTrend(w io.Writer, rows []rolling.Row, windows []int) error {
	if rows == nil {
		rows = []rolling.Row{}
	}
	return f.encode(w, struct {
		Windows []int         `json:"windows"`
		Rows    []rolling.Row `json:"rows"`
	}{windows, rows})
}

// FormatPairs implements Formatter.FormatPairs.
func (f *jsonFormatter) FormatPairs(w io.Writer, pairs []cooccur.Pair) error {
	if pairs == nil {
		pairs = []cooccur.Pair{}
	}
	return f.encode(w, pairs)
}

// FormatBuckets implements Formatter.FormatBuckets.
func (f *jsonFormatter) FormatBuckets(w io.Writer, rows []costbucket.Row) error {
	if rows == nil {
		rows = []costbucket.Row{}
	}
	return f.encode(w, rows)
}
