// Package rolling computes trailing-window moving averages over daily
// per-group cost sums.
//
// The day series for each group is sparse: days with no positive-cost
// records produce no row, and the window slides over the rows that
// exist, not over calendar days ("ROWS BETWEEN w-1 PRECEDING AND
// CURRENT ROW" semantics). Callers needing calendar-continuous
// smoothing must zero-fill gaps before invoking this package. At the
// start of a series the window is partial: the average covers the rows
// available so far, never an error.
//
// Example usage:
//
//	rows, err := rolling.Compute(ctx, provider, rolling.Config{
//	    Windows: []int{7, 30},
//	})
//	for _, row := range rows {
//	    fmt.Printf("%s %s cost=%s avg7=%.2f\n",
//	        row.Group, row.Day.Format("2006-01-02"), row.DailyCost, row.Averages[0])
//	}
package rolling

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
)

// DefaultWindows are the trailing window sizes used when none are
// configured.
var DefaultWindows = []int{7, 30}

// Row is the smoothed value for one group on one present day.
type Row struct {
	// Group is the series key (one value per configured dimension).
	Group string `json:"group"`

	// Day is the calendar day (UTC midnight).
	Day time.Time `json:"day"`

	// DailyCost is the exact cost sum for the day.
	DailyCost decimal.Decimal `json:"daily_cost"`

	// Averages holds one trailing average per configured window size,
	// in configuration order.
	Averages []float64 `json:"averages"`
}

// Config contains rolling aggregation configuration.
type Config struct {
	// GroupBy is the series dimension.
	// Default: analyze.DimService.
	GroupBy analyze.Dimension

	// Windows are the trailing window sizes, each > 0.
	// Default: DefaultWindows.
	Windows []int
}
