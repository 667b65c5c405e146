package cooccur

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/source"
)

// pairKey identifies a canonical pair in the global accumulator.
type pairKey struct {
	a, b string
}

// pairState accumulates one pair's statistics across groups.
type pairState struct {
	count    int
	combined decimal.Decimal
}

// Analyze computes co-occurring entity pairs over the provider.
//
// The analysis runs in two stages: a per-(group, entity) positive-cost
// sum via the aggregation engine, then explicit enumeration of the
// C(n,2) canonical pairs within each group, merged into a global
// pair-to-stats mapping. No pairwise product of records is ever
// materialized.
//
// Pairs are sorted by descending count; ties are broken
// lexicographically by (EntityA, EntityB).
func Analyze(ctx context.Context, p source.Provider, cfg Config) ([]Pair, error) {
	if cfg.PairBy == "" {
		cfg.PairBy = analyze.DimService
	}
	if cfg.GroupBy == "" {
		cfg.GroupBy = analyze.DimProject
	}
	if cfg.MinCount == 0 {
		cfg.MinCount = DefaultMinCount
	}

	// Stage 1: summed cost per (group, entity), positive costs only.
	res, err := analyze.Run(ctx, p, analyze.Config{
		Key:    analyze.KeyByDimensions(cfg.GroupBy, cfg.PairBy),
		Value:  analyze.CostValue,
		Filter: analyze.PositiveCost,
	})
	if err != nil {
		return nil, err
	}

	// Regroup into per-group entity summaries.
	type entitySum struct {
		entity string
		sum    decimal.Decimal
	}
	groups := make(map[string][]entitySum)

	for key, stats := range res.Groups {
		// Exactly two components: the group, then the entity. SplitKey
		// unescapes, so entities containing the separator survive.
		parts := analyze.SplitKey(key)
		group, entity := parts[0], parts[1]

		groups[group] = append(groups[group], entitySum{entity: entity, sum: stats.Sum})
	}

	// Stage 2: enumerate canonical pairs per group.
	pairs := make(map[pairKey]*pairState)

	for _, entities := range groups {
		if len(entities) < 2 {
			// A group with a single entity contributes no pairs.
			continue
		}

		sort.Slice(entities, func(i, j int) bool {
			return entities[i].entity < entities[j].entity
		})

		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				key := pairKey{a: entities[i].entity, b: entities[j].entity}

				state, ok := pairs[key]
				if !ok {
					state = &pairState{}
					pairs[key] = state
				}

				state.count++
				state.combined = state.combined.Add(entities[i].sum).Add(entities[j].sum)
			}
		}
	}

	out := make([]Pair, 0, len(pairs))
	for key, state := range pairs {
		if state.count <= cfg.MinCount {
			continue
		}

		avg, _ := state.combined.Div(decimal.NewFromInt(int64(state.count))).Float64()
		out = append(out, Pair{
			EntityA:         key.a,
			EntityB:         key.b,
			Count:           state.count,
			AvgCombinedCost: avg,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].EntityA != out[j].EntityA {
			return out[i].EntityA < out[j].EntityA
		}
		return out[i].EntityB < out[j].EntityB
	})

	return out, nil
}
