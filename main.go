package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/planbench/planbench/internal/aggregate"
	"github.com/planbench/planbench/internal/bench"
	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/diff"
	"github.com/planbench/planbench/internal/gen"
	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/parser"
	"github.com/planbench/planbench/internal/render/dot"
	"github.com/planbench/planbench/internal/render/html"
	"github.com/planbench/planbench/internal/render/tui"
	"github.com/planbench/planbench/internal/results"
	"github.com/planbench/planbench/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "parse":
		err = parseCommand(args)
	case "report":
		err = reportCommand(args)
	case "bench":
		err = benchCommand(args)
	case "results":
		err = resultsCommand(args)
	case "diff":
		err = diffCommand(args)
	case "gen":
		err = genCommand(args)
	case "version":
		err = versionCommand(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`planbench - cross-engine query plan benchmarking harness

Usage:
  planbench <command> [options]

Commands:
  parse    Normalize a raw plan artifact and emit the operator tree as JSON
  report   Render a normalized plan (TUI, HTML or Graphviz dot)
  bench    Run a benchmark suite against an engine and record timings
  results  Aggregate recorded result files into a comparison table
  diff     Compare two plans and summarise operator-level deltas
  gen      Generate a synthetic clickstream CSV dataset
  version  Show CLI version information

Use "planbench <command> -h" for command-specific help.`)
}

func applyConfigPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PLANBENCH_CONFIG"))
	}
	return config.Apply(path)
}

func parseCommand(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench parse --input plan.txt [--engine datafusion|duckdb|snowflake]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		input      = fs.String("input", "", "Path to the raw plan artifact ('-' for stdin)")
		engineName = fs.String("engine", "", "Plan format; auto-detected when omitted")
		outPath    = fs.String("out", "", "Output path (stdout if omitted)")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANBENCH_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("--input is required")
	}

	plan, err := loadPlan(*input, *engineName)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(planDocument(plan), "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	payload = append(payload, '\n')

	if *outPath == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(*outPath, payload, 0o644)
}

func reportCommand(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench report --input plan.txt [--mode tui|html|dot] [--out file]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		input      = fs.String("input", "", "Path to the raw plan artifact ('-' for stdin)")
		engineName = fs.String("engine", "", "Plan format; auto-detected when omitted")
		output     = fs.String("out", "", "Output path (stdout if omitted)")
		mode       = fs.String("mode", "tui", "Output mode: tui, html or dot")
		title      = fs.String("title", "", "Report title (HTML, dot)")
		color      = fs.Bool("color", true, "Enable ANSI colors for TUI output")
		maxDepth   = fs.Int("max-depth", 0, "Limit tree depth (TUI)")
		includeCSS = fs.Bool("css", true, "Include inline styles (HTML)")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANBENCH_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("--input is required")
	}

	plan, err := loadPlan(*input, *engineName)
	if err != nil {
		return err
	}
	if plan.Empty() {
		return fmt.Errorf("no plan structure found in %s", *input)
	}
	totals := aggregate.Compute(plan)

	target, closeTarget, err := openOutput(*output)
	if err != nil {
		return err
	}
	defer closeTarget()

	switch *mode {
	case "tui":
		return tui.Render(target, plan, totals, tui.Options{
			EnableColor: *color,
			MaxDepth:    *maxDepth,
		})
	case "html":
		return html.Render(target, plan, totals, html.Options{
			Title:         *title,
			IncludeStyles: *includeCSS,
		})
	case "dot":
		return dot.Render(target, plan, dot.Options{Title: *title})
	default:
		return fmt.Errorf("unknown mode %q (expected tui, html or dot)", *mode)
	}
}

func benchCommand(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench bench --suite suite.yaml [--out results.json] [--db runs.sqlite]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		suitePath  = fs.String("suite", "", "Path to the benchmark suite definition (YAML)")
		outPath    = fs.String("out", "", "Path to write the result document (stdout if omitted)")
		dbPath     = fs.String("db", "", "Optional SQLite catalog to record the run into")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANBENCH_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *suitePath == "" {
		return fmt.Errorf("--suite is required")
	}

	suite, err := bench.LoadSuite(*suitePath)
	if err != nil {
		return err
	}
	r, err := bench.NewRunner(suite)
	if err != nil {
		return err
	}

	result, err := bench.Run(context.Background(), suite, r, os.Stderr)
	if err != nil {
		return err
	}

	if *dbPath != "" {
		catalog, err := store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = catalog.Close()
		}()
		runID, err := catalog.SaveRun(result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "recorded run %d in %s\n", runID, *dbPath)
	}

	if *outPath == "" {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		os.Stdout.Write(payload)
		os.Stdout.WriteString("\n")
		return nil
	}
	return bench.WriteResult(*outPath, result)
}

func resultsCommand(args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench results --dir results/ [--pattern \"*.json\"] [--out table.md]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		dir        = fs.String("dir", "", "Directory to scan for result documents")
		pattern    = fs.String("pattern", "*.json", "Glob matched against result file names")
		outPath    = fs.String("out", "", "Output path (stdout if omitted)")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANBENCH_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("--dir is required")
	}

	systems, problems := results.Discover(*dir, *pattern)
	for _, problem := range problems {
		fmt.Fprintf(os.Stderr, "warning: %v\n", problem)
	}
	if len(systems) == 0 {
		return fmt.Errorf("no result documents matched %q under %s", *pattern, *dir)
	}

	content := results.Markdown(systems)
	if *outPath == "" {
		fmt.Print(content)
		return nil
	}
	return os.WriteFile(*outPath, []byte(content), 0o644)
}

func diffCommand(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench diff --base base.txt --target target.txt [--format md]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		basePath   = fs.String("base", "", "Path to the baseline plan artifact")
		targetPath = fs.String("target", "", "Path to the target plan artifact")
		engineName = fs.String("engine", "", "Plan format for both inputs; auto-detected when omitted")
		format     = fs.String("format", "md", "Output format: md or json")
		output     = fs.String("out", "", "Output path (stdout if omitted)")
		minDelta   = fs.Float64("min-delta", 0, "Minimum processing-time delta in seconds to report (default from config)")
		minPct     = fs.Float64("min-percent", 0, "Minimum percent change to report (default from config)")
		maxItems   = fs.Int("limit", 0, "Maximum rows per section (default from config)")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANBENCH_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *basePath == "" || *targetPath == "" {
		return fmt.Errorf("--base and --target are required")
	}

	base, err := loadPlan(*basePath, *engineName)
	if err != nil {
		return fmt.Errorf("load base: %w", err)
	}
	target, err := loadPlan(*targetPath, *engineName)
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}

	report, err := diff.Compare(base, target, diff.Options{
		MinSelfDeltaSeconds: *minDelta,
		MinPercentChange:    *minPct,
		MaxItems:            *maxItems,
	})
	if err != nil {
		return err
	}

	switch *format {
	case "md", "markdown":
		content := report.Markdown()
		if *output == "" {
			fmt.Print(content)
			return nil
		}
		return os.WriteFile(*output, []byte(content), 0o644)
	case "json":
		payload, err := report.JSON()
		if err != nil {
			return err
		}
		if *output == "" {
			os.Stdout.Write(payload)
			os.Stdout.WriteString("\n")
			return nil
		}
		return os.WriteFile(*output, payload, 0o644)
	default:
		return fmt.Errorf("unsupported format %q", *format)
	}
}

func genCommand(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planbench gen [--events n] [--day YYYY-MM-DD] [--out events.csv]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		events  = fs.Int("events", 0, "Number of page views to generate (default 1000)")
		day     = fs.String("day", "", "Anchor date for event timestamps, YYYY-MM-DD (default today)")
		mobile  = fs.Int("mobile-percent", 0, "Share of events with a mobile user agent (default 50)")
		seed    = fs.Int64("seed", 0, "Random seed for reproducible output (default from clock)")
		outPath = fs.String("out", "", "Output path (stdout if omitted)")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}

	opts := gen.Options{
		Events:        *events,
		MobilePercent: *mobile,
		Seed:          *seed,
	}
	if *day != "" {
		anchor, err := time.Parse("2006-01-02", *day)
		if err != nil {
			return fmt.Errorf("parse --day: %w", err)
		}
		opts.Day = anchor
	}

	target, closeTarget, err := openOutput(*outPath)
	if err != nil {
		return err
	}
	defer closeTarget()

	rows, err := gen.Write(target, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d rows\n", rows)
	return nil
}

func versionCommand(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	short := fs.Bool("short", false, "Print only the version number")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}

	v, meta := resolveVersion()
	if *short {
		fmt.Println(v)
		return nil
	}
	if meta != "" {
		fmt.Printf("planbench %s (%s)\n", v, meta)
	} else {
		fmt.Printf("planbench %s\n", v)
	}
	return nil
}

func resolveVersion() (string, string) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}

	var commit, buildTime string
	var dirty bool
	if info, ok := debug.ReadBuildInfo(); ok {
		if (v == "dev" || v == "(devel)") &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" &&
			!strings.HasPrefix(info.Main.Version, "v0.0.0-") {
			v = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var details []string
	if commit != "" {
		short := commit
		if len(short) > 12 {
			short = short[:12]
		}
		if dirty {
			short += "*"
			dirty = false
		}
		details = append(details, fmt.Sprintf("commit %s", short))
	}
	if buildTime != "" {
		details = append(details, fmt.Sprintf("built %s", buildTime))
	}
	if dirty {
		details = append(details, "modified workspace")
	}

	return v, strings.Join(details, ", ")
}

// loadPlan reads a raw artifact and runs the requested (or detected) grammar.
func loadPlan(path, engineName string) (*model.Plan, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	engine := parser.EngineUnknown
	if engineName != "" {
		engine, err = parser.ParseEngine(engineName)
		if err != nil {
			return nil, err
		}
	}
	return parser.Parse(engine, data)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

// planDoc is the JSON shape emitted by the parse command. Node ids and
// edges come straight from the flattened plan.
type planDoc struct {
	QueryTitle   string        `json:"query_title,omitempty"`
	CLIVersion   string        `json:"cli_version,omitempty"`
	ElapsedPings []float64     `json:"elapsed_pings,omitempty"`
	Nodes        []planDocNode `json:"nodes"`
	Edges        []planDocEdge `json:"edges"`
}

type planDocNode struct {
	ID      int            `json:"id"`
	Type    string         `json:"type"`
	Detail  string         `json:"detail,omitempty"`
	Depth   int            `json:"depth"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

type planDocEdge struct {
	Parent int `json:"parent"`
	Child  int `json:"child"`
}

func planDocument(plan *model.Plan) planDoc {
	doc := planDoc{
		QueryTitle:   plan.QueryTitle,
		CLIVersion:   plan.CLIVersion,
		ElapsedPings: plan.ElapsedPings,
		Nodes:        []planDocNode{},
		Edges:        []planDocEdge{},
	}
	for _, fn := range plan.FlatNodes {
		doc.Nodes = append(doc.Nodes, planDocNode{
			ID:      fn.ID,
			Type:    fn.Node.Type,
			Detail:  fn.Node.Detail,
			Depth:   fn.Node.Depth,
			Metrics: fn.Node.Metrics,
		})
	}
	for _, edge := range plan.Edges {
		doc.Edges = append(doc.Edges, planDocEdge{Parent: edge.Parent, Child: edge.Child})
	}
	return doc
}
