package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/reports"
)

// reportCommand handles saved report subcommands.
type reportCommand struct {
	configPath string
}

// Execute runs the report command.
func (c *reportCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "list":
		return c.runList(subargs)
	case "show":
		return c.runShow(subargs)
	case "delete":
		return c.runDelete(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown report subcommand: %s", subcommand)
	}
}

// openManager loads configuration and opens the report store.
func (c *reportCommand) openManager() (reports.Manager, logger.Logger, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg)

	mgr, err := reports.New(reports.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report store: %w", err)
	}

	return mgr, log, nil
}

// runList lists all saved reports.
func (c *reportCommand) runList(args []string) error {
	fs := flag.NewFlagSet("report list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, log, err := c.openManager()
	if err != nil {
		return err
	}
	defer closeManager(mgr, log)

	summaries, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No saved reports")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			s.Name, s.Kind, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// runShow prints one report, including its payload.
func (c *reportCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("report show", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: billscan report show <name>")
	}
	name := fs.Arg(0)

	mgr, log, err := c.openManager()
	if err != nil {
		return err
	}
	defer closeManager(mgr, log)

	report, err := mgr.Get(name)
	if err != nil {
		return fmt.Errorf("failed to get report: %w", err)
	}

	fmt.Printf("Name:    %s\n", report.Name)
	fmt.Printf("Kind:    %s\n", report.Kind)
	fmt.Printf("Created: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05"))
	for key, value := range report.Params {
		if value != "" {
			fmt.Printf("  %s: %s\n", key, value)
		}
	}
	fmt.Println()

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, report.Payload, "", "  "); err != nil {
		// Payload is stored verbatim; print it raw if it will not indent.
		fmt.Println(string(report.Payload))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

// runDelete removes a saved report.
func (c *reportCommand) runDelete(args []string) error {
	fs := flag.NewFlagSet("report delete", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: billscan report delete <name>")
	}
	name := fs.Arg(0)

	mgr, log, err := c.openManager()
	if err != nil {
		return err
	}
	defer closeManager(mgr, log)

	if err := mgr.Delete(name); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	fmt.Printf("Deleted report %q\n", name)
	return nil
}

// closeManager closes the report store, logging failures.
func closeManager(mgr reports.Manager, log logger.Logger) {
	if err := mgr.Close(); err != nil {
		log.Error("failed to close report store", "error", err)
	}
}

// showHelp displays help for the report command.
func (c *reportCommand) showHelp() error {
	help := `Report - saved report management

Usage:
  billscan report <subcommand>

Subcommands:
  list      List all saved reports
  show      Show one report, including its payload
  delete    Delete a saved report

Reports are created with the -save flag on analysis commands:

  billscan stats -save july-stats
  billscan outliers -threshold 3 -save big-spikes

Examples:
  billscan report list
  billscan report show july-stats
  billscan report delete july-stats
`
	fmt.Print(help)
	return nil
}
