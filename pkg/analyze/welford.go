package analyze

import "math"

// Accumulator carries running mean/variance state using Welford's
// online algorithm. The zero value is ready to use.
//
// Accumulators over disjoint record partitions can be combined with
// Merge (the parallel variant of the algorithm), and merging is
// associative and commutative up to floating-point rounding.
type Accumulator struct {
	count int64
	mean  float64
	m2    float64
}

// Update folds one observation into the accumulator.
func (a *Accumulator) Update(x float64) {
	a.count++
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

// Merge combines another accumulator's state into this one.
func (a *Accumulator) Merge(b Accumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 {
		*a = b
		return
	}

	total := a.count + b.count
	delta := b.mean - a.mean

	a.mean += delta * float64(b.count) / float64(total)
	a.m2 += b.m2 + delta*delta*float64(a.count)*float64(b.count)/float64(total)
	a.count = total
}

// Count returns the number of observations.
func (a *Accumulator) Count() int64 {
	return a.count
}

// Mean returns the running mean. The second result is false when no
// observations have been recorded.
func (a *Accumulator) Mean() (float64, bool) {
	if a.count == 0 {
		return 0, false
	}
	return a.mean, true
}

// SampleVariance returns the sample (n-1) variance. The second result
// is false when the variance is undefined (fewer than two
// observations).
func (a *Accumulator) SampleVariance() (float64, bool) {
	if a.count < 2 {
		return 0, false
	}
	return a.m2 / float64(a.count-1), true
}

// PopulationVariance returns the population (n) variance. A single
// observation is treated as undefined, not zero: a one-record group
// carries no spread information.
func (a *Accumulator) PopulationVariance() (float64, bool) {
	if a.count < 2 {
		return 0, false
	}
	return a.m2 / float64(a.count), true
}

// SampleStdDev returns the sample standard deviation, or false when
// undefined.
func (a *Accumulator) SampleStdDev() (float64, bool) {
	v, ok := a.SampleVariance()
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// PopulationStdDev returns the population standard deviation, or false
// when undefined.
func (a *Accumulator) PopulationStdDev() (float64, bool) {
	v, ok := a.PopulationVariance()
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}
