// Package cooccur discovers which entities tend to be billed together:
// pairs of services that both appear, with positive cost, inside the
// same project.
//
// Pairs are canonical: entity_a < entity_b lexicographically, so each
// unordered pair is represented exactly once and no entity is paired
// with itself. A group with a single entity contributes no pairs.
//
// Example usage:
//
//	pairs, err := cooccur.Analyze(ctx, provider, cooccur.Config{})
//	for _, p := range pairs {
//	    fmt.Printf("%s + %s: %d projects, avg combined %.2f\n",
//	        p.EntityA, p.EntityB, p.Count, p.AvgCombinedCost)
//	}
package cooccur

import (
	"github.com/cloudbill/billscan/pkg/analyze"
)

// DefaultMinCount is the default strict lower bound on pair counts:
// only pairs seen in more than this many groups are emitted.
const DefaultMinCount = 5

// Pair is one canonical co-occurring entity pair.
type Pair struct {
	// EntityA is the lexicographically smaller entity.
	EntityA string `json:"entity_a"`

	// EntityB is the lexicographically larger entity.
	EntityB string `json:"entity_b"`

	// Count is the number of groups where both entities appear.
	Count int `json:"count"`

	// AvgCombinedCost is the mean over those groups of the two
	// entities' summed costs.
	AvgCombinedCost float64 `json:"avg_combined_cost"`
}

// Config contains co-occurrence configuration.
type Config struct {
	// PairBy is the paired entity dimension.
	// Default: analyze.DimService.
	PairBy analyze.Dimension

	// GroupBy is the grouping context dimension.
	// Default: analyze.DimProject.
	GroupBy analyze.Dimension

	// MinCount is the strict lower bound on emitted pair counts.
	// Default: DefaultMinCount. Set negative to emit all pairs.
	MinCount int
}
