// Command csfbench builds every selected static-function implementation
// over generated workloads and prints a comparison table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"csfbench/bench"
	"csfbench/csf"
	"csfbench/csf/all"
	"csfbench/errutil"
	"csfbench/harness"
	"csfbench/logging"
	"csfbench/report"
	"csfbench/stats"
)

func main() {
	def := harness.DefaultConfig()
	var (
		configPath   = flag.String("config", "", "YAML config file; flags given explicitly override it")
		implArg      = flag.String("impl", "", "Comma-separated implementations (default: all)")
		nsArg        = flag.String("n", joinInts(def.KeyCounts), "Comma-separated key counts")
		keys         = flag.String("keys", def.Keys, "Key distribution: uniform or sequential")
		keyBits      = flag.Uint("key-bits", def.KeyBits, "Key width in bits (1..64)")
		values       = flag.String("values", def.Values, "Value distribution: uniform, dominant or geometric")
		valueRange   = flag.Uint64("value-range", def.ValueRange, "Values are drawn from [0, value-range)")
		dominant     = flag.Float64("dominant", def.DominantShare, "Share of the most frequent value for -values=dominant")
		trials       = flag.Int("trials", def.Trials, "Trials per implementation and key count")
		seed         = flag.Uint64("seed", def.Seed, "Base RNG seed")
		queries      = flag.Int("queries", def.QueryCount, "Timed queries per trial (0: one per key)")
		warmup       = flag.Int("warmup", def.WarmupQueries, "Untimed warm-up queries per trial")
		absent       = flag.Int("absent", def.AbsentQueries, "Absent keys queried per trial")
		order        = flag.String("order", def.QueryOrder, "Query order: shuffled or original")
		verifySample = flag.Int("verify-sample", def.VerifySample, "Verify only this many keys (0: all)")
		timeout      = flag.Duration("timeout", def.TrialTimeout, "Per-build time limit (0: none)")
		workers      = flag.Int("workers", def.Workers, "Trials run in parallel")
		csvPath      = flag.String("csv", "", "Also write the report as CSV to this path")
		extended     = flag.Bool("extended", false, "Print extended columns")
		debug        = flag.Bool("debug", false, "Debug logging")
		human        = flag.Bool("human", true, "Human-readable logs instead of JSON")
		progress     = flag.Bool("progress", false, "Show a progress bar")
		list         = flag.Bool("list", false, "List implementations and exit")
	)
	flag.Parse()
	logging.Init(*debug, *human)

	reg := all.Default()
	if *list {
		printRegistry(reg)
		return
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = harness.LoadFile(*configPath); err != nil {
			fail("%v", err)
		}
	}

	var parseErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "impl":
			cfg.Implementations = splitCSV(*implArg)
		case "n":
			ns, err := parseCSVInts(*nsArg)
			if err != nil {
				parseErr = err
			}
			cfg.KeyCounts = ns
		case "keys":
			cfg.Keys = *keys
		case "key-bits":
			cfg.KeyBits = *keyBits
		case "values":
			cfg.Values = *values
		case "value-range":
			cfg.ValueRange = *valueRange
		case "dominant":
			cfg.DominantShare = *dominant
		case "trials":
			cfg.Trials = *trials
		case "seed":
			cfg.Seed = *seed
		case "queries":
			cfg.QueryCount = *queries
		case "warmup":
			cfg.WarmupQueries = *warmup
		case "absent":
			cfg.AbsentQueries = *absent
		case "order":
			cfg.QueryOrder = *order
		case "verify-sample":
			cfg.VerifySample = *verifySample
		case "timeout":
			cfg.TrialTimeout = *timeout
		case "workers":
			cfg.Workers = *workers
		}
	})
	if parseErr != nil {
		fail("%v", parseErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logging.WithComponent("harness"))

	var opts harness.Options
	if *progress {
		total, err := harness.UnitCount(cfg, reg)
		if err != nil {
			fail("%v", err)
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("trials"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts.OnTrial = func(bench.TrialResult) { _ = bar.Add(1) }
	}

	started := time.Now()
	rep, err := harness.Run(ctx, cfg, reg, opts)
	if err != nil {
		fail("%v", err)
	}
	logging.L().Info().Dur("elapsed", time.Since(started)).Msg("benchmark finished")

	ropts := report.Options{Extended: *extended, Comments: cfg.Describe()}
	if err := report.Text(os.Stdout, rep, ropts); err != nil {
		fail("write report: %v", err)
	}
	if *csvPath != "" {
		if err := writeCSV(*csvPath, rep, ropts); err != nil {
			fail("%v", err)
		}
	}
}

func printRegistry(reg *csf.Registry) {
	for _, a := range reg.All() {
		fmt.Printf("%-16s %-11s %s\n", a.Name(), a.Mode(), csf.ParamsOf(a))
	}
}

func writeCSV(path string, rep *stats.Report, opts report.Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := errutil.First(report.CSV(f, rep, opts), f.Close()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCSVInts(v string) ([]int, error) {
	parts := splitCSV(v)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse int %q: %v", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
