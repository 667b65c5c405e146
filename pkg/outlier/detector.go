package outlier

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/source"
)

// detector implements the Detector interface.
type detector struct {
	config Config
	logger logger.Logger
}

// New creates a new outlier detector.
//
// Parameters:
//   - cfg: Detector configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Detector
//   - Error if the configuration is invalid
func New(cfg Config, log logger.Logger) (Detector, error) {
	// Set defaults.
	if cfg.GroupBy == "" {
		cfg.GroupBy = analyze.DimService
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Threshold < 0 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Limit < 0 {
		return nil, ErrInvalidLimit
	}

	return &detector{
		config: cfg,
		logger: log,
	}, nil
}

// Detect implements Detector.Detect.
func (d *detector) Detect(ctx context.Context, p source.Provider) ([]Outlier, error) {
	keyFn := analyze.KeyByDimensions(d.config.GroupBy)

	// Pass 1: per-group cost statistics.
	stats, err := analyze.Run(ctx, p, analyze.Config{
		Key:   keyFn,
		Value: analyze.CostValue,
	})
	if err != nil {
		return nil, fmt.Errorf("statistics pass failed: %w", err)
	}

	d.logger.Debug("outlier statistics pass complete",
		"groups", len(stats.Groups),
		"scanned", stats.Scanned,
		"excluded", stats.Excluded)

	// Pass 2: score every positive-cost record against its group.
	src, err := p.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analyze.ErrSourceFailed, err)
	}

	var outliers []Outlier
	index := -1

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", analyze.ErrSourceFailed, err)
		}
		index++

		if !rec.Cost.IsPositive() {
			continue
		}

		key, ok := keyFn(rec)
		if !ok {
			continue
		}

		group, ok := stats.Groups[key]
		if !ok {
			continue
		}

		// Undefined or zero spread leaves the z-score undefined; the
		// record is excluded rather than flagged.
		if group.StdDevPop == nil || *group.StdDevPop == 0 {
			continue
		}

		z := (rec.Cost.InexactFloat64() - group.Mean) / *group.StdDevPop
		if math.Abs(z) <= d.config.Threshold {
			continue
		}

		outliers = append(outliers, Outlier{
			Index:     index,
			Record:    *rec,
			Group:     key,
			Cost:      rec.Cost,
			GroupMean: group.Mean,
			Z:         z,
		})
	}

	// Descending |z|, ties by descending cost.
	sort.SliceStable(outliers, func(i, j int) bool {
		zi, zj := math.Abs(outliers[i].Z), math.Abs(outliers[j].Z)
		if zi != zj {
			return zi > zj
		}
		return outliers[i].Cost.GreaterThan(outliers[j].Cost)
	})

	if d.config.Limit > 0 && len(outliers) > d.config.Limit {
		outliers = outliers[:d.config.Limit]
	}

	d.logger.Debug("outlier scoring pass complete",
		"outliers", len(outliers),
		"threshold", d.config.Threshold)

	return outliers, nil
}
