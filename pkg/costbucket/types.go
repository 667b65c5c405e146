// Package costbucket classifies record costs into an ordered list of
// disjoint labeled ranges and aggregates per range.
//
// Ranges must be exhaustive over [0, ∞) and non-overlapping; both
// invariants are validated once at configuration time, never at scan
// time. The emitted distribution is complete: every configured range
// appears in output, in ascending order, even when no record falls in
// it.
//
// Example usage:
//
//	cfg := costbucket.Config{Ranges: costbucket.DefaultRanges()}
//	rows, err := costbucket.Run(ctx, provider, cfg)
//	for _, row := range rows {
//	    fmt.Printf("%-12s %6d %s\n", row.Label, row.Count, row.Sum)
//	}
package costbucket

import (
	"github.com/shopspring/decimal"
)

// Range is one half-open cost range (Low, High], or the degenerate
// zero range holding exactly cost == 0.
type Range struct {
	// Label tags the range in output.
	Label string `yaml:"label" json:"label"`

	// Low is the exclusive lower bound (ignored direction for Exact).
	Low decimal.Decimal `yaml:"low" json:"low"`

	// High is the inclusive upper bound. Nil means unbounded; only the
	// last range may be unbounded.
	High *decimal.Decimal `yaml:"high" json:"high"`

	// Exact marks the degenerate range holding exactly Low. Only the
	// first range may be exact, and only at zero.
	Exact bool `yaml:"exact" json:"exact"`
}

// Contains reports whether the cost falls in this range.
func (r *Range) Contains(cost decimal.Decimal) bool {
	if r.Exact {
		return cost.Equal(r.Low)
	}
	if !cost.GreaterThan(r.Low) {
		return false
	}
	return r.High == nil || cost.LessThanOrEqual(*r.High)
}

// Config contains bucketizer configuration.
type Config struct {
	// Ranges is the ordered, exhaustive, non-overlapping range list.
	Ranges []Range
}

// Row is the aggregate for one configured range.
type Row struct {
	// Label is the range's tag.
	Label string `json:"label"`

	// Count is the number of records classified into the range.
	Count int64 `json:"count"`

	// Sum is the exact cost sum over those records.
	Sum decimal.Decimal `json:"sum"`
}
