package costbucket

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/source"
)

// DefaultRanges returns the standard cost distribution ranges:
// =0, (0,1], (1,10], (10,100], (100,1000], (1000,∞).
func DefaultRanges() []Range {
	ranges, err := FromBoundaries([]decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.NewFromInt(10),
		decimal.NewFromInt(100),
		decimal.NewFromInt(1000),
	})
	if err != nil {
		// The built-in boundaries are ascending by construction.
		panic(err)
	}
	return ranges
}

// FromBoundaries builds a complete range list from ascending positive
// boundaries b1 < b2 < ... < bn:
// =0, (0,b1], (b1,b2], ..., (bn,∞).
func FromBoundaries(bounds []decimal.Decimal) ([]Range, error) {
	ranges := []Range{
		{Label: "=0", Low: decimal.Zero, Exact: true},
	}

	low := decimal.Zero
	for _, b := range bounds {
		if !b.GreaterThan(low) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnorderedBounds, b, low)
		}
		high := b
		ranges = append(ranges, Range{
			Label: fmt.Sprintf("(%s,%s]", low, high),
			Low:   low,
			High:  &high,
		})
		low = b
	}

	ranges = append(ranges, Range{
		Label: fmt.Sprintf("(%s,∞)", low),
		Low:   low,
	})

	return ranges, nil
}

// Validate checks the configured ranges for exhaustiveness and
// non-overlap. It runs once at configuration time; classification
// assumes a valid configuration.
func (c *Config) Validate() error {
	if len(c.Ranges) == 0 {
		return ErrNoRanges
	}

	seen := make(map[string]bool, len(c.Ranges))

	for i := range c.Ranges {
		r := &c.Ranges[i]

		if r.Label == "" {
			return ErrEmptyLabel
		}
		if seen[r.Label] {
			return fmt.Errorf("%w: %s", ErrDuplicateLabel, r.Label)
		}
		seen[r.Label] = true

		if r.Exact {
			// Only the leading zero range may be degenerate; anywhere
			// else it would overlap the preceding inclusive bound.
			if i != 0 || !r.Low.IsZero() {
				return ErrMisplacedExact
			}
			continue
		}

		if r.High != nil && !r.High.GreaterThan(r.Low) {
			return fmt.Errorf("%w: (%s,%s]", ErrUnorderedBounds, r.Low, r.High)
		}
		if r.High == nil && i != len(c.Ranges)-1 {
			return fmt.Errorf("%w: unbounded range %s is not last", ErrNotContiguous, r.Label)
		}
	}

	// Coverage must start at zero: either an exact zero range followed
	// by a half-open range from zero, or a half-open range whose open
	// lower bound lies below zero.
	first := &c.Ranges[0]
	if !first.Exact && !first.Low.IsNegative() {
		return fmt.Errorf("%w: cost 0 is uncovered", ErrNotExhaustive)
	}

	// Each range must pick up exactly where the previous one ended.
	covered := first.Low // inclusive coverage end
	if !first.Exact {
		if first.High == nil {
			return nil
		}
		covered = *first.High
	}

	for i := 1; i < len(c.Ranges); i++ {
		r := &c.Ranges[i]
		if !r.Low.Equal(covered) {
			return fmt.Errorf("%w: range %s starts at %s, coverage ends at %s",
				ErrNotContiguous, r.Label, r.Low, covered)
		}
		if r.High == nil {
			return nil
		}
		covered = *r.High
	}

	return fmt.Errorf("%w: no unbounded final range", ErrNotExhaustive)
}

// Classify returns the range containing the cost. The boolean is false
// only for costs outside [0, ∞), which a validated configuration never
// needs to cover.
func (c *Config) Classify(cost decimal.Decimal) (*Range, bool) {
	for i := range c.Ranges {
		if c.Ranges[i].Contains(cost) {
			return &c.Ranges[i], true
		}
	}
	return nil, false
}

// Run classifies every record and aggregates count and cost sum per
// range.
//
// The result always has one row per configured range, in configuration
// order; ranges with no records appear with count 0.
func Run(ctx context.Context, p source.Provider, cfg Config) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := analyze.Run(ctx, p, analyze.Config{
		Key: func(r *billing.Record) (string, bool) {
			rng, ok := cfg.Classify(r.Cost)
			if !ok {
				return "", false
			}
			return rng.Label, true
		},
		Value: analyze.CostValue,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(cfg.Ranges))
	for i := range cfg.Ranges {
		row := Row{
			Label: cfg.Ranges[i].Label,
			Sum:   decimal.Zero,
		}
		if stats, ok := res.Groups[cfg.Ranges[i].Label]; ok {
			row.Count = stats.Count
			row.Sum = stats.Sum
		}
		rows = append(rows, row)
	}

	return rows, nil
}
