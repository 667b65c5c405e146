// Package analyze provides the streaming group-by aggregation engine all
// billing analyses are built on.
//
// Records are grouped by a key function and reduced in a single
// left-to-right pass into per-group count, sum, min, max, and running
// mean/variance accumulators (Welford's online algorithm), so no pass
// ever needs the full dataset resident. Partial aggregations over
// disjoint record partitions can be merged, which keeps the engine
// usable from parallel scans.
//
// Example usage:
//
//	res, err := analyze.Run(ctx, provider, analyze.Config{
//	    Key:   analyze.KeyByDimensions(analyze.DimService),
//	    Value: analyze.CostValue,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for key, stats := range res.Groups {
//	    fmt.Printf("%s: count=%d sum=%s\n", key, stats.Count, stats.Sum)
//	}
package analyze

import (
	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/billing"
)

// Dimension represents a grouping dimension.
type Dimension string

const (
	// DimService groups by service description.
	DimService Dimension = "service"

	// DimProject groups by project ID.
	DimProject Dimension = "project"

	// DimSKU groups by SKU description.
	DimSKU Dimension = "sku"

	// DimLocation groups by country.
	DimLocation Dimension = "location"

	// DimDay groups by the calendar day of usage_start_time (UTC).
	DimDay Dimension = "day"

	// DimCurrency groups by currency code.
	DimCurrency Dimension = "currency"

	// DimAccount groups by billing account ID.
	DimAccount Dimension = "account"
)

// KeySeparator joins dimension values inside a composite group key.
const KeySeparator = "|"

// DayFormat is the layout of DimDay key components.
const DayFormat = "2006-01-02"

// KeyFunc extracts a group key from a record. The second result is
// false when the record lacks a dimension the key requires; such
// records are excluded from the analysis and counted, never coerced to
// a default key.
type KeyFunc func(r *billing.Record) (string, bool)

// ValueFunc extracts the numeric field being aggregated. The second
// result is false when the field is absent from the record.
type ValueFunc func(r *billing.Record) (decimal.Decimal, bool)

// FilterFunc restricts an analysis to matching records. Records that
// fail the filter are skipped and counted separately from exclusions.
type FilterFunc func(r *billing.Record) bool

// HavingFunc filters finalized groups by their computed metrics, the
// equivalent of SQL HAVING.
type HavingFunc func(stats *Stats) bool

// Config contains aggregation configuration.
type Config struct {
	// Key extracts the group key. Required.
	Key KeyFunc

	// Value extracts the aggregated numeric field. Required.
	Value ValueFunc

	// Filter optionally restricts the analysis to matching records.
	Filter FilterFunc

	// Having optionally filters finalized groups.
	Having HavingFunc
}

// Stats holds the finalized metrics for one group.
type Stats struct {
	// Count is the number of records reduced into the group.
	Count int64 `json:"count"`

	// Sum is the exact decimal sum of the aggregated value.
	Sum decimal.Decimal `json:"sum"`

	// Min is the smallest value seen.
	Min decimal.Decimal `json:"min"`

	// Max is the largest value seen.
	Max decimal.Decimal `json:"max"`

	// Mean is the running mean of the aggregated value.
	Mean float64 `json:"mean"`

	// StdDev is the sample standard deviation. Nil when undefined
	// (fewer than two records).
	StdDev *float64 `json:"stddev"`

	// StdDevPop is the population standard deviation. Nil when
	// undefined (fewer than two records).
	StdDevPop *float64 `json:"stddev_pop"`
}

// Result is the outcome of one aggregation pass.
type Result struct {
	// Groups maps group keys to finalized statistics.
	Groups map[string]Stats `json:"groups"`

	// Scanned is the total number of records read from the source.
	Scanned int `json:"scanned"`

	// Excluded is the number of records dropped because a required
	// dimension or value field was absent.
	Excluded int `json:"excluded"`

	// Filtered is the number of records dropped by the configured
	// filter predicate.
	Filtered int `json:"filtered"`
}

// Aggregator reduces billing records into grouped statistics.
//
// Aggregators are not safe for concurrent use; run one per partition
// and combine them with Merge.
type Aggregator interface {
	// Add reduces one record into the aggregation.
	Add(r *billing.Record)

	// Merge combines another aggregator's partial state into this one.
	// Both sides must come from the same Config; the argument must not
	// be used afterwards.
	Merge(other Aggregator) error

	// Result finalizes and returns the aggregation outcome. The
	// aggregator must not be reused after Result.
	Result() *Result
}
