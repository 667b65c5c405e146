// Package main provides the billscan CLI application.
//
// Billscan analyzes cloud billing export files: grouped cost
// statistics, outlier detection, rolling trends, service pair
// analysis and cost distribution, with live monitoring of growing
// exports.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("billscan %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "stats":
		return runStatsCommand(*configPath, args[1:])
	case "outliers":
		return runOutliersCommand(*configPath, args[1:])
	case "trend":
		return runTrendCommand(*configPath, args[1:])
	case "pairs":
		return runPairsCommand(*configPath, args[1:])
	case "buckets":
		return runBucketsCommand(*configPath, args[1:])
	case "list":
		return runListCommand(*configPath)
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "report":
		return runReportCommand(*configPath, args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runStatsCommand runs the stats command.
func runStatsCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dir := fs.String("dir", "", "export directory override")
	account := fs.String("account", "", "filter by billing account ID")
	month := fs.String("month", "", "filter by export month (YYYY-MM)")
	groupBy := fs.String("group-by", "service", "group by dimensions (comma-separated: service,project,sku,location,day,currency,account)")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	spread := fs.Bool("spread", false, "show standard deviation column")
	maxRows := fs.Int("max-rows", 0, "limit printed rows (0 = unlimited)")
	save := fs.String("save", "", "save the result as a named report")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &statsCommand{
		dir:        *dir,
		account:    *account,
		month:      *month,
		groupBy:    splitDimensions(*groupBy),
		format:     *format,
		compact:    *compact,
		spread:     *spread,
		maxRows:    *maxRows,
		saveAs:     *save,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runOutliersCommand runs the outliers command.
func runOutliersCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("outliers", flag.ExitOnError)
	dir := fs.String("dir", "", "export directory override")
	account := fs.String("account", "", "filter by billing account ID")
	month := fs.String("month", "", "filter by export month (YYYY-MM)")
	groupBy := fs.String("group-by", "service", "grouping dimension")
	threshold := fs.Float64("threshold", 0, "z-score threshold (0 = configured default)")
	limit := fs.Int("limit", 0, "cap the number of reported outliers (0 = configured default)")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	save := fs.String("save", "", "save the result as a named report")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &outliersCommand{
		dir:        *dir,
		account:    *account,
		month:      *month,
		groupBy:    *groupBy,
		threshold:  *threshold,
		limit:      *limit,
		format:     *format,
		compact:    *compact,
		saveAs:     *save,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runTrendCommand runs the trend command.
func runTrendCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("trend", flag.ExitOnError)
	dir := fs.String("dir", "", "export directory override")
	account := fs.String("account", "", "filter by billing account ID")
	month := fs.String("month", "", "filter by export month (YYYY-MM)")
	groupBy := fs.String("group-by", "service", "series dimension")
	windows := fs.String("windows", "", "trailing window sizes in days (comma-separated, empty = configured default)")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	save := fs.String("save", "", "save the result as a named report")

	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedWindows, err := parseWindows(*windows)
	if err != nil {
		return err
	}

	cmd := &trendCommand{
		dir:        *dir,
		account:    *account,
		month:      *month,
		groupBy:    *groupBy,
		windows:    parsedWindows,
		format:     *format,
		compact:    *compact,
		saveAs:     *save,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runPairsCommand runs the pairs command.
func runPairsCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("pairs", flag.ExitOnError)
	dir := fs.String("dir", "", "export directory override")
	account := fs.String("account", "", "filter by billing account ID")
	month := fs.String("month", "", "filter by export month (YYYY-MM)")
	minCount := fs.Int("min-count", -1, "minimum shared project count (0 = all pairs, -1 = configured default)")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	maxRows := fs.Int("max-rows", 0, "limit printed rows (0 = unlimited)")
	save := fs.String("save", "", "save the result as a named report")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &pairsCommand{
		dir:        *dir,
		account:    *account,
		month:      *month,
		minCount:   *minCount,
		format:     *format,
		compact:    *compact,
		maxRows:    *maxRows,
		saveAs:     *save,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runBucketsCommand runs the buckets command.
func runBucketsCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("buckets", flag.ExitOnError)
	dir := fs.String("dir", "", "export directory override")
	account := fs.String("account", "", "filter by billing account ID")
	month := fs.String("month", "", "filter by export month (YYYY-MM)")
	boundaries := fs.String("boundaries", "", "range boundaries (comma-separated, empty = configured default)")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	save := fs.String("save", "", "save the result as a named report")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &bucketsCommand{
		dir:        *dir,
		account:    *account,
		month:      *month,
		boundaries: *boundaries,
		format:     *format,
		compact:    *compact,
		saveAs:     *save,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runListCommand runs the list command.
func runListCommand(configPath string) error {
	cmd := &listCommand{
		configPath: configPath,
	}
	return cmd.Execute()
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	account := fs.String("account", "", "monitor a specific billing account")
	groupBy := fs.String("group-by", "service", "group by dimensions (comma-separated)")
	refresh := fs.Duration("refresh", time.Second, "refresh interval (e.g., 1s, 500ms)")
	format := fs.String("format", "table", "output format (table, simple)")
	history := fs.Bool("history", false, "keep history of updates (append mode)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &watchCommand{
		account:     *account,
		groupBy:     splitDimensions(*groupBy),
		refresh:     *refresh,
		format:      *format,
		clearScreen: !*history, // clear screen unless history mode
		configPath:  configPath,
	}

	return cmd.Execute()
}

// runReportCommand runs the report command.
func runReportCommand(configPath string, args []string) error {
	cmd := &reportCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// splitDimensions splits a comma-separated dimension list.
func splitDimensions(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// parseWindows parses comma-separated window sizes.
func parseWindows(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	windows := make([]int, 0, len(parts))
	for _, part := range parts {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid window size: %s", part)
		}
		windows = append(windows, n)
	}
	return windows, nil
}

// showUsage displays usage information.
func showUsage() error {
	usage := `Billscan - cloud billing export analysis tool

Usage:
  billscan [flags] <command> [command flags]

Commands:
  stats       Grouped cost statistics
  outliers    Z-score cost outlier detection
  trend       Daily costs with trailing rolling averages
  pairs       Services billed to the same projects
  buckets     Cost distribution across ranges
  list        List discovered export files
  watch       Live monitoring of growing exports
  report      Saved report management (list, show, delete)
  config      Configuration management (show, path, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Common Command Flags:
  -dir        Export directory override
  -account    Filter by billing account ID
  -month      Filter by export month (YYYY-MM)
  -format     Output format (table, json, simple)
  -compact    Compact output
  -save       Save the result as a named report

Examples:
  # Cost statistics grouped by service
  billscan stats

  # Statistics grouped by project and service
  billscan stats -group-by project,service

  # Outliers with a custom threshold
  billscan outliers -threshold 3 -limit 20

  # 7- and 30-day rolling averages per service
  billscan trend -windows 7,30

  # Service pairs sharing at least 3 projects
  billscan pairs -min-count 3

  # Cost distribution for one account
  billscan buckets -account 01A2B3-C4D5E6

  # Live monitoring with custom refresh
  billscan watch -refresh 500ms

  # Save and inspect a report
  billscan stats -save july-stats
  billscan report show july-stats

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
