package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/config"
	"github.com/cloudbill/billscan/pkg/cooccur"
	"github.com/cloudbill/billscan/pkg/costbucket"
	"github.com/cloudbill/billscan/pkg/discovery"
	"github.com/cloudbill/billscan/pkg/display"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/monitor"
	"github.com/cloudbill/billscan/pkg/outlier"
	"github.com/cloudbill/billscan/pkg/reader"
	"github.com/cloudbill/billscan/pkg/reports"
	"github.com/cloudbill/billscan/pkg/rolling"
	"github.com/cloudbill/billscan/pkg/source"
	"github.com/cloudbill/billscan/pkg/watcher"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM, so
// long scans stop at the next record boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig loads configuration, honoring an explicit -config path.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// newLogger builds the CLI logger from configuration.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// applyDirOverride narrows the export directories to a -dir flag value.
func applyDirOverride(cfg *config.Config, dir string) {
	if dir != "" {
		cfg.ExportDirs = []string{dir}
	}
}

// buildProvider discovers export files matching the account and month
// filters and wraps them in a streaming record provider.
func buildProvider(cfg *config.Config, log logger.Logger, account, month string) (source.Provider, error) {
	disc := discovery.New(cfg.ExportDirs, log)
	exports, err := disc.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover exports: %w", err)
	}

	paths := make([]string, 0, len(exports))
	for _, exp := range exports {
		if account != "" && exp.AccountID != account {
			continue
		}
		if month != "" && exp.Month != month {
			continue
		}
		paths = append(paths, exp.FilePath)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no export files found")
	}

	return reader.NewProvider(paths, billing.NewParser(), log), nil
}

// newFormatter builds a display formatter from command flags.
func newFormatter(format string, compact, spread bool, maxRows int) display.Formatter {
	var f display.Format
	switch format {
	case "json":
		f = display.FormatJSON
	case "simple":
		f = display.FormatSimple
	default:
		f = display.FormatTable
	}

	return display.New(display.Config{
		Format:     f,
		ShowSpread: spread,
		Compact:    compact,
		MaxRows:    maxRows,
	})
}

// saveReport persists a command result as a named report.
func saveReport(cfg *config.Config, log logger.Logger, name string, kind reports.Kind, params map[string]string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode report payload: %w", err)
	}

	mgr, err := reports.New(reports.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			log.Error("failed to close report store", "error", closeErr)
		}
	}()

	if err := mgr.Save(&reports.Report{
		Name:    name,
		Kind:    kind,
		Params:  params,
		Payload: data,
	}); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	fmt.Printf("Saved report %q\n", name)
	return nil
}

// statsCommand displays grouped cost statistics.
type statsCommand struct {
	dir        string
	account    string
	month      string
	groupBy    []string
	format     string
	compact    bool
	spread     bool
	maxRows    int
	saveAs     string
	configPath string
}

// Execute runs the stats command.
func (c *statsCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)
	applyDirOverride(cfg, c.dir)

	dims, err := c.parseDimensions()
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg, log, c.account, c.month)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := analyze.Run(ctx, provider, analyze.Config{
		Key:   analyze.KeyByDimensions(dims...),
		Value: analyze.CostValue,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if c.saveAs != "" {
		return saveReport(cfg, log, c.saveAs, reports.KindStats, map[string]string{
			"group_by": strings.Join(c.groupBy, ","),
			"account":  c.account,
			"month":    c.month,
		}, res)
	}

	formatter := newFormatter(c.format, c.compact, c.spread, c.maxRows)
	return formatter.FormatGroups(os.Stdout, res, c.groupBy)
}

// parseDimensions converts dimension strings to types.
func (c *statsCommand) parseDimensions() ([]analyze.Dimension, error) {
	if len(c.groupBy) == 0 {
		return []analyze.Dimension{analyze.DimService}, nil
	}

	dims := make([]analyze.Dimension, 0, len(c.groupBy))
	for _, name := range c.groupBy {
		dim, err := analyze.ParseDimension(name)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

// outliersCommand detects cost outliers.
type outliersCommand struct {
	dir        string
	account    string
	month      string
	groupBy    string
	threshold  float64
	limit      int
	format     string
	compact    bool
	saveAs     string
	configPath string
}

// Execute runs the outliers command.
func (c *outliersCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)
	applyDirOverride(cfg, c.dir)

	dim, err := analyze.ParseDimension(c.groupBy)
	if err != nil {
		return err
	}

	threshold := c.threshold
	if threshold == 0 {
		threshold = cfg.Analysis.OutlierThreshold
	}
	limit := c.limit
	if limit == 0 {
		limit = cfg.Analysis.OutlierLimit
	}

	det, err := outlier.New(outlier.Config{
		GroupBy:   dim,
		Threshold: threshold,
		Limit:     limit,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	provider, err := buildProvider(cfg, log, c.account, c.month)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	outliers, err := det.Detect(ctx, provider)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if c.saveAs != "" {
		return saveReport(cfg, log, c.saveAs, reports.KindOutliers, map[string]string{
			"group_by":  c.groupBy,
			"threshold": fmt.Sprintf("%g", threshold),
			"account":   c.account,
			"month":     c.month,
		}, outliers)
	}

	formatter := newFormatter(c.format, c.compact, false, 0)
	return formatter.FormatOutliers(os.Stdout, outliers)
}

// trendCommand computes daily costs with rolling averages.
type trendCommand struct {
	dir        string
	account    string
	month      string
	groupBy    string
	windows    []int
	format     string
	compact    bool
	saveAs     string
	configPath string
}

// Execute runs the trend command.
func (c *trendCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)
	applyDirOverride(cfg, c.dir)

	dim, err := analyze.ParseDimension(c.groupBy)
	if err != nil {
		return err
	}

	windows := c.windows
	if len(windows) == 0 {
		windows = cfg.Analysis.RollingWindows
	}

	provider, err := buildProvider(cfg, log, c.account, c.month)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rows, err := rolling.Compute(ctx, provider, rolling.Config{
		GroupBy: dim,
		Windows: windows,
	})
	if err != nil {
		return fmt.Errorf("trend computation failed: %w", err)
	}

	if c.saveAs != "" {
		return saveReport(cfg, log, c.saveAs, reports.KindTrend, map[string]string{
			"group_by": c.groupBy,
			"windows":  joinInts(windows),
			"account":  c.account,
			"month":    c.month,
		}, rows)
	}

	formatter := newFormatter(c.format, c.compact, false, 0)
	return formatter.FormatTrend(os.Stdout, rows, windows)
}

// pairsCommand finds services billed to the same projects.
type pairsCommand struct {
	dir        string
	account    string
	month      string
	minCount   int
	format     string
	compact    bool
	maxRows    int
	saveAs     string
	configPath string
}

// Execute runs the pairs command.
func (c *pairsCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)
	applyDirOverride(cfg, c.dir)

	minCount := resolveMinCount(c.minCount, cfg.Analysis.PairMinCount)

	provider, err := buildProvider(cfg, log, c.account, c.month)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pairs, err := cooccur.Analyze(ctx, provider, cooccur.Config{
		MinCount: minCount,
	})
	if err != nil {
		return fmt.Errorf("pair analysis failed: %w", err)
	}

	if c.saveAs != "" {
		return saveReport(cfg, log, c.saveAs, reports.KindPairs, map[string]string{
			"min_count": fmt.Sprintf("%d", minCount),
			"account":   c.account,
			"month":     c.month,
		}, pairs)
	}

	formatter := newFormatter(c.format, c.compact, false, c.maxRows)
	return formatter.FormatPairs(os.Stdout, pairs)
}

// resolveMinCount maps the -min-count flag onto the pair analysis
// threshold. Negative flag values defer to the configured default; an
// explicit zero disables the floor and reports every pair, which
// cooccur expects as a negative threshold.
func resolveMinCount(flagValue, configured int) int {
	v := flagValue
	if v < 0 {
		v = configured
	}
	if v == 0 {
		return -1
	}
	return v
}

// bucketsCommand computes the cost distribution across ranges.
type bucketsCommand struct {
	dir        string
	account    string
	month      string
	boundaries string
	format     string
	compact    bool
	saveAs     string
	configPath string
}

// Execute runs the buckets command.
func (c *bucketsCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)
	applyDirOverride(cfg, c.dir)

	ranges, err := c.buildRanges(cfg)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg, log, c.account, c.month)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rows, err := costbucket.Run(ctx, provider, costbucket.Config{
		Ranges: ranges,
	})
	if err != nil {
		return fmt.Errorf("bucket analysis failed: %w", err)
	}

	if c.saveAs != "" {
		return saveReport(cfg, log, c.saveAs, reports.KindBuckets, map[string]string{
			"boundaries": c.boundaries,
			"account":    c.account,
			"month":      c.month,
		}, rows)
	}

	formatter := newFormatter(c.format, c.compact, false, 0)
	return formatter.FormatBuckets(os.Stdout, rows)
}

// buildRanges resolves range boundaries from the flag, then the
// configuration, then the built-in defaults.
func (c *bucketsCommand) buildRanges(cfg *config.Config) ([]costbucket.Range, error) {
	spec := c.boundaries
	if spec == "" && len(cfg.Analysis.BucketBoundaries) > 0 {
		spec = strings.Join(cfg.Analysis.BucketBoundaries, ",")
	}
	if spec == "" {
		return costbucket.DefaultRanges(), nil
	}

	parts := strings.Split(spec, ",")
	boundaries := make([]decimal.Decimal, 0, len(parts))
	for _, part := range parts {
		b, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid boundary %q: %w", part, err)
		}
		boundaries = append(boundaries, b)
	}

	return costbucket.FromBoundaries(boundaries)
}

// listCommand lists all discovered export files.
type listCommand struct {
	configPath string
}

// Execute runs the list command.
func (c *listCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)

	disc := discovery.New(cfg.ExportDirs, log)
	exports, err := disc.Discover()
	if err != nil {
		return fmt.Errorf("failed to discover exports: %w", err)
	}

	if len(exports) == 0 {
		fmt.Println("No export files found")
		return nil
	}

	fmt.Printf("Found %d export file(s):\n\n", len(exports))
	for _, exp := range exports {
		fmt.Printf("  %s\n", exp.FilePath)
		if exp.AccountID != "" {
			fmt.Printf("    Account: %s\n", exp.AccountID)
		}
		if exp.Month != "" {
			fmt.Printf("    Month: %s\n", exp.Month)
		}
		fmt.Printf("    Size: %d bytes, modified %s\n",
			exp.Size, time.Unix(exp.ModTime, 0).Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	return nil
}

// watchCommand provides live cost monitoring.
type watchCommand struct {
	account     string
	groupBy     []string
	refresh     time.Duration
	format      string
	clearScreen bool
	configPath  string
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Quiet logger; only errors surface during live monitoring.
	log := logger.New(logger.Config{
		Level:  "error",
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Persist read positions alongside saved reports so incremental
	// reads resume across sessions. Fall back to in-memory positions
	// when the database is unavailable (e.g. held by another process).
	var store reader.PositionStore
	if boltStore, storeErr := reader.NewBoltPositionStore(cfg.Storage.DBPath); storeErr == nil {
		defer func() {
			if err := boltStore.Close(); err != nil {
				log.Error("failed to close position store", "error", err)
			}
		}()
		store = boltStore
	} else {
		log.Error("position database unavailable, positions will not persist",
			"path", cfg.Storage.DBPath,
			"error", storeErr)
		store = reader.NewMemoryPositionStore()
	}

	r, err := reader.New(reader.Config{
		PositionStore: store,
		Parser:        billing.NewParser(),
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize reader: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Error("failed to close reader", "error", err)
		}
	}()

	w, err := watcher.New(watcher.Config{
		DebounceInterval: cfg.Monitoring.DebounceWindow,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Error("failed to close watcher", "error", err)
		}
	}()

	disc := discovery.New(cfg.ExportDirs, log)

	var accounts []string
	if c.account != "" {
		accounts = []string{c.account}
	}

	dims := make([]analyze.Dimension, 0, len(c.groupBy))
	for _, name := range c.groupBy {
		dim, err := analyze.ParseDimension(name)
		if err != nil {
			return err
		}
		dims = append(dims, dim)
	}

	mon, err := monitor.New(monitor.Config{
		Accounts:        accounts,
		GroupBy:         dims,
		RefreshInterval: c.refresh,
	}, w, r, disc, log)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start monitor in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := mon.Start(); err != nil {
			errChan <- err
		}
	}()

	// Clear screen and display initial header
	if c.clearScreen {
		fmt.Print("\033[2J\033[H")
	}

	fmt.Println("Live Cost Monitor - Press Ctrl+C to stop")
	if c.account != "" {
		fmt.Printf("Account: %s | ", c.account)
	} else {
		fmt.Print("All Accounts | ")
	}
	fmt.Printf("Refresh: %s\n", c.refresh)
	fmt.Println(strings.Repeat("-", 72))
	fmt.Println()

	// Process updates
	for {
		select {
		case <-sigChan:
			fmt.Print("\n\n")
			fmt.Println("Stopping monitor...")
			if err := mon.Stop(); err != nil {
				log.Error("failed to stop monitor", "error", err)
			}
			return nil

		case err := <-errChan:
			return fmt.Errorf("monitor error: %w", err)

		case update := <-mon.Updates():
			c.displayUpdate(update)
		}
	}
}

// displayUpdate renders a live monitoring update.
func (c *watchCommand) displayUpdate(update monitor.Update) {
	// Move past the header and clear the rest of the screen.
	if c.clearScreen {
		fmt.Print("\033[5;1H\033[J")
	}

	fmt.Printf("Updated %s | +%d records | +%s cost\n\n",
		update.Timestamp.Format("15:04:05"),
		update.Delta.NewRecords,
		update.Delta.CostAdded.StringFixed(2))

	if update.Result == nil {
		return
	}

	formatter := newFormatter(c.format, true, false, 0)
	if err := formatter.FormatGroups(os.Stdout, update.Result, c.groupBy); err != nil {
		fmt.Fprintf(os.Stderr, "display error: %v\n", err)
	}
}

// joinInts joins ints with commas.
func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}
