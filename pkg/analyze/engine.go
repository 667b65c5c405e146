package analyze

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/source"
)

// bucket holds the running state for one group key.
type bucket struct {
	count int64
	sum   decimal.Decimal
	min   decimal.Decimal
	max   decimal.Decimal
	acc   Accumulator
}

// update folds one value into the bucket.
func (b *bucket) update(v decimal.Decimal) {
	if b.count == 0 {
		b.min = v
		b.max = v
	} else {
		if v.LessThan(b.min) {
			b.min = v
		}
		if v.GreaterThan(b.max) {
			b.max = v
		}
	}

	b.count++
	b.sum = b.sum.Add(v)
	b.acc.Update(v.InexactFloat64())
}

// merge combines another bucket's state into this one.
func (b *bucket) merge(o *bucket) {
	if o.count == 0 {
		return
	}
	if b.count == 0 {
		*b = *o
		return
	}

	if o.min.LessThan(b.min) {
		b.min = o.min
	}
	if o.max.GreaterThan(b.max) {
		b.max = o.max
	}
	b.count += o.count
	b.sum = b.sum.Add(o.sum)
	b.acc.Merge(o.acc)
}

// finalize converts running state into immutable Stats.
func (b *bucket) finalize() Stats {
	stats := Stats{
		Count: b.count,
		Sum:   b.sum,
		Min:   b.min,
		Max:   b.max,
	}

	if mean, ok := b.acc.Mean(); ok {
		stats.Mean = mean
	}
	if sd, ok := b.acc.SampleStdDev(); ok {
		stats.StdDev = &sd
	}
	if sd, ok := b.acc.PopulationStdDev(); ok {
		stats.StdDevPop = &sd
	}

	return stats
}

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config

	buckets  map[string]*bucket
	scanned  int
	excluded int
	filtered int
}

// New creates a new aggregator.
//
// Parameters:
//   - cfg: Aggregation configuration
//
// Returns:
//   - Configured Aggregator
//   - Error if the configuration is incomplete
func New(cfg Config) (Aggregator, error) {
	if cfg.Key == nil {
		return nil, ErrNilKeyFunc
	}
	if cfg.Value == nil {
		return nil, ErrNilValueFunc
	}

	return &aggregator{
		config:  cfg,
		buckets: make(map[string]*bucket),
	}, nil
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(r *billing.Record) {
	a.scanned++

	if a.config.Filter != nil && !a.config.Filter(r) {
		a.filtered++
		return
	}

	key, ok := a.config.Key(r)
	if !ok {
		a.excluded++
		return
	}

	val, ok := a.config.Value(r)
	if !ok {
		a.excluded++
		return
	}

	b, exists := a.buckets[key]
	if !exists {
		b = &bucket{}
		a.buckets[key] = b
	}
	b.update(val)
}

// Merge implements Aggregator.Merge.
func (a *aggregator) Merge(other Aggregator) error {
	o, ok := other.(*aggregator)
	if !ok {
		return ErrIncompatibleMerge
	}

	for key, ob := range o.buckets {
		b, exists := a.buckets[key]
		if !exists {
			a.buckets[key] = ob
			continue
		}
		b.merge(ob)
	}

	a.scanned += o.scanned
	a.excluded += o.excluded
	a.filtered += o.filtered

	return nil
}

// Result implements Aggregator.Result.
func (a *aggregator) Result() *Result {
	result := &Result{
		Groups:   make(map[string]Stats, len(a.buckets)),
		Scanned:  a.scanned,
		Excluded: a.excluded,
		Filtered: a.filtered,
	}

	for key, b := range a.buckets {
		stats := b.finalize()
		if a.config.Having != nil && !a.config.Having(&stats) {
			continue
		}
		result.Groups[key] = stats
	}

	return result
}

// Run performs a full aggregation pass over a record source.
//
// Cancellation is checked once per record. On source failure or
// cancellation all partial state is discarded and an error is returned;
// the analysis is atomic, never a silently truncated result.
func Run(ctx context.Context, p source.Provider, cfg Config) (*Result, error) {
	agg, err := New(cfg)
	if err != nil {
		return nil, err
	}

	src, err := p.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFailed, err)
	}

	if err := Scan(ctx, src, agg); err != nil {
		return nil, err
	}

	return agg.Result(), nil
}

// Scan drains a source into an aggregator, checking cancellation
// between records.
func Scan(ctx context.Context, src source.Source, agg Aggregator) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceFailed, err)
		}

		agg.Add(rec)
	}
}
