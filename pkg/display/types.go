// Package display provides output formatting for billing analysis results.
//
// It supports multiple output formats (table, JSON, simple text) and
// handles grouped statistics, outliers, rolling trends, service pairs
// and cost distribution rows.
package display

import (
	"io"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/cooccur"
	"github.com/cloudbill/billscan/pkg/costbucket"
	"github.com/cloudbill/billscan/pkg/outlier"
	"github.com/cloudbill/billscan/pkg/rolling"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays results in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays results as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays results in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays billing analysis results.
type Formatter interface {
	// FormatGroups formats grouped cost statistics.
	//
	// Parameters:
	//   - w: Output writer
	//   - res: Aggregation result to format
	//   - dimensions: Dimension names for display
	//
	// Returns error if formatting fails.
	FormatGroups(w io.Writer, res *analyze.Result, dimensions []string) error

	// FormatOutliers formats detected cost outliers.
	//
	// Parameters:
	//   - w: Output writer
	//   - outliers: Outliers to format, in detection order
	//
	// Returns error if formatting fails.
	FormatOutliers(w io.Writer, outliers []outlier.Outlier) error

	// FormatTrend formats per-day rolling average rows.
	//
	// Parameters:
	//   - w: Output writer
	//   - rows: Trend rows to format
	//   - windows: Window sizes matching each row's averages
	//
	// Returns error if formatting fails.
	FormatTrend(w io.Writer, rows []rolling.Row, windows []int) error

	// FormatPairs formats service co-occurrence pairs.
	//
	// Parameters:
	//   - w: Output writer
	//   - pairs: Pairs to format, in ranked order
	//
	// Returns error if formatting fails.
	FormatPairs(w io.Writer, pairs []cooccur.Pair) error

	// FormatBuckets formats the cost range distribution.
	//
	// Parameters:
	//   - w: Output writer
	//   - rows: One row per configured range, in range order
	//
	// Returns error if formatting fails.
	FormatBuckets(w io.Writer, rows []costbucket.Row) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowSpread enables standard deviation columns.
	// Default: false.
	ShowSpread bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// MaxRows caps the number of rows printed per section.
	// Default: 0 (unbounded).
	MaxRows int
}
