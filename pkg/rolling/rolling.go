package rolling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/source"
)

// window is a bounded trailing accumulator: a ring buffer of at most
// size values with a running sum.
type window struct {
	size int
	buf  []float64
	head int
	n    int
	sum  float64
}

func newWindow(size int) *window {
	return &window{
		size: size,
		buf:  make([]float64, size),
	}
}

// push adds a value and returns the average over the values currently
// in the window (a partial window while fewer than size values have
// been pushed).
func (w *window) push(x float64) float64 {
	if w.n == w.size {
		w.sum -= w.buf[w.head]
	} else {
		w.n++
	}

	w.buf[w.head] = x
	w.head = (w.head + 1) % w.size
	w.sum += x

	return w.sum / float64(w.n)
}

// Compute derives daily per-group cost sums from the provider and
// returns one row per (group, present day) with trailing averages.
//
// Only positive-cost records contribute. Rows are ordered by group
// ascending, then day ascending.
func Compute(ctx context.Context, p source.Provider, cfg Config) ([]Row, error) {
	if cfg.GroupBy == "" {
		cfg.GroupBy = analyze.DimService
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultWindows
	}
	for _, w := range cfg.Windows {
		if w <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, w)
		}
	}

	// Daily sums per (group, day), positive costs only.
	res, err := analyze.Run(ctx, p, analyze.Config{
		Key:    analyze.KeyByDimensions(cfg.GroupBy, analyze.DimDay),
		Value:  analyze.CostValue,
		Filter: analyze.PositiveCost,
	})
	if err != nil {
		return nil, err
	}

	// Regroup (group, day) keys into per-group sparse series.
	type point struct {
		day   time.Time
		stats analyze.Stats
	}
	series := make(map[string][]point)

	for key, stats := range res.Groups {
		parts := analyze.SplitKey(key)
		// The day is always the last key component.
		group := strings.Join(parts[:len(parts)-1], analyze.KeySeparator)
		dayStr := parts[len(parts)-1]

		day, parseErr := time.Parse(analyze.DayFormat, dayStr)
		if parseErr != nil {
			return nil, fmt.Errorf("malformed day key %q: %w", key, parseErr)
		}

		series[group] = append(series[group], point{day: day, stats: stats})
	}

	groups := make([]string, 0, len(series))
	for group := range series {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	var rows []Row
	for _, group := range groups {
		points := series[group]
		sort.Slice(points, func(i, j int) bool {
			return points[i].day.Before(points[j].day)
		})

		windows := make([]*window, len(cfg.Windows))
		for i, size := range cfg.Windows {
			windows[i] = newWindow(size)
		}

		for _, pt := range points {
			daily := pt.stats.Sum.InexactFloat64()

			avgs := make([]float64, len(windows))
			for i, w := range windows {
				avgs[i] = w.push(daily)
			}

			rows = append(rows, Row{
				Group:     group,
				Day:       pt.day,
				DailyCost: pt.stats.Sum,
				Averages:  avgs,
			})
		}
	}

	return rows, nil
}
