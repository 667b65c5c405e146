// Package outlier detects statistically anomalous charges: records
// whose cost lies more than a configurable number of standard
// deviations from their group's mean.
//
// Detection is a two-pass algorithm. Pass one aggregates cost per group
// to obtain each group's mean and standard deviation; pass two scores
// every positive-cost record against its group. Groups whose standard
// deviation is undefined (a single record) or zero contribute no
// outliers: the z-score is undefined there, never infinite.
//
// Example usage:
//
//	det, err := outlier.New(outlier.Config{Threshold: 2.0}, logger.Default())
//	outliers, err := det.Detect(ctx, provider)
//	for _, o := range outliers {
//	    fmt.Printf("%s: cost=%s z=%.2f\n", o.Group, o.Cost, o.Z)
//	}
package outlier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/source"
)

// DefaultThreshold is the |z| threshold above which a record is an
// outlier. The comparison is strict: |z| must exceed the threshold.
const DefaultThreshold = 2.0

// Outlier is one anomalous record with its score.
type Outlier struct {
	// Index is the record's position in the source scan order, the
	// record's identity across passes.
	Index int `json:"index"`

	// Record is the scored billing record.
	Record billing.Record `json:"record"`

	// Group is the record's group key.
	Group string `json:"group"`

	// Cost is the record's cost.
	Cost decimal.Decimal `json:"cost"`

	// GroupMean is the mean cost of the record's group.
	GroupMean float64 `json:"group_mean"`

	// Z is the number of standard deviations Cost lies from GroupMean.
	Z float64 `json:"z_score"`
}

// Config contains detector configuration.
type Config struct {
	// GroupBy is the grouping dimension.
	// Default: analyze.DimService.
	GroupBy analyze.Dimension

	// Threshold is the strict |z| cutoff.
	// Default: DefaultThreshold. Must be > 0.
	Threshold float64

	// Limit caps the number of returned outliers.
	// Default: 0 (unbounded).
	Limit int
}

// Detector scores billing records against their group statistics.
type Detector interface {
	// Detect runs both passes over the provider and returns outliers
	// sorted by descending |z|, ties broken by descending cost.
	//
	// Records excluded from scoring (zero cost, missing group
	// dimension, or a group with undefined or zero standard deviation)
	// are never reported as outliers.
	Detect(ctx context.Context, p source.Provider) ([]Outlier, error)
}
