package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/infrastructure/config"
	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

const dateLayout = "2006-01-02"

var newID = uuid.NewString

type command struct {
	summary string
	// offline commands never open the store
	offline bool
	run     func(ctx context.Context, app *App, args []string) error
}

var registry = map[string]command{
	"load":       {summary: "Import items, assembly edges and opening lots from a CSV directory", run: runLoad},
	"validate":   {summary: "Check a CSV directory for cycles and missing items without importing", offline: true, run: runValidate},
	"generate":   {summary: "Write a synthetic multi-level CSV scenario", offline: true, run: runGenerate},
	"cost":       {summary: "Show the current unit cost of an item", run: runCost},
	"history":    {summary: "Show an item's unit cost as of a past date", run: runHistory},
	"inspect":    {summary: "Roll up the cost of goods sold of an item with its breakdown", run: runInspect},
	"revalue":    {summary: "Change a lot's unit cost and propagate it to produced lots", run: runRevalue},
	"audit":      {summary: "List the revaluation records of a lot", run: runAudit},
	"receive":    {summary: "Receive a purchased lot", run: runReceive},
	"issue":      {summary: "Issue stock of an item in FIFO order", run: runIssue},
	"adjust":     {summary: "Adjust a lot's quantity or record a stocktake count", run: runAdjust},
	"reverse":    {summary: "Reverse a ledger transaction", run: runReverse},
	"deactivate": {summary: "Remove a lot from FIFO issue and cost resolution", run: runDeactivate},
	"produce":    {summary: "Produce a lot from consumed inputs and record its provenance", run: runProduce},
	"reconcile":  {summary: "Compare lot quantities with their ledger history", run: runReconcile},
}

// Run parses global flags, dispatches to a subcommand and writes its report to stdout
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()

	global := flag.NewFlagSet("costing", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { printHelp(stderr) }
	global.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	format := global.String("format", output.FormatText, "Output format: text, json, html")
	global.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	global.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json")
	verbose := global.Bool("verbose", false, "Enable debug logging")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	rest := global.Args()
	if len(rest) == 0 || rest[0] == "help" {
		printHelp(stdout)
		return nil
	}
	cmd, ok := registry[rest[0]]
	if !ok {
		printHelp(stderr)
		return fmt.Errorf("unknown command: %s", rest[0])
	}

	runErr := execute(ctx, cmd, cfg, *format, rest[1:], stdout, stderr)
	if errors.Is(runErr, flag.ErrHelp) {
		return nil
	}
	return runErr
}

func execute(ctx context.Context, cmd command, cfg config.Config, format string, args []string, stdout, stderr io.Writer) error {
	if cmd.offline {
		return cmd.run(ctx, &App{Config: cfg, Format: format, Out: stdout}, args)
	}

	app, err := NewApp(cfg, format, stdout, stderr)
	if err != nil {
		return err
	}
	runErr := cmd.run(ctx, app, args)
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newFlagSet(app *App, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.Out)
	return fs
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid -%s %q: %w", field, s, err)
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseDate reads YYYY-MM-DD as the end of that day in UTC
func parseDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid -%s %q (expected YYYY-MM-DD)", field, s)
	}
	t = t.Add(24*time.Hour - time.Nanosecond)
	return &t, nil
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `Inventory Costing Engine

USAGE:
    costing [GLOBAL OPTIONS] <command> [OPTIONS]

GLOBAL OPTIONS:
    -db <PATH>           SQLite database path (default costing.db, env COSTING_DB_PATH)
    -format <FORMAT>     Output format: text, json, html
    -log-level <LEVEL>   Log level (env COSTING_LOG_LEVEL)
    -log-format <FMT>    Log format: text, json (env COSTING_LOG_FORMAT)
    -verbose             Enable debug logging

COMMANDS:
`)
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %-12s %s\n", name, registry[name].summary)
	}
	fmt.Fprint(w, `
EXAMPLES:
    # Import master data and opening balances
    costing -db plant.db load -dir ./scenario

    # Roll up an assembly as of a past date
    costing -db plant.db inspect -item BRACKET -as-of 2024-06-30

    # Revalue a lot and cascade the change through everything built from it
    costing -db plant.db revalue -item STEEL -lot S-001 -cost 12.50 -reason "supplier credit"

Run "costing <command> -h" for the options of a command.
`)
}
