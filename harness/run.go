package harness

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"csfbench/bench"
	"csfbench/csf"
	"csfbench/logging"
	"csfbench/report"
	"csfbench/stats"
	"csfbench/utils"
	"csfbench/workload"
)

// Options are optional hooks of Run.
type Options struct {
	// OnTrial is called after every finished trial. With more than one
	// worker it is called concurrently.
	OnTrial func(bench.TrialResult)
}

// unit is one trial of one implementation at one key count.
type unit struct {
	adapter csf.Adapter
	keyIdx  int
	trial   int
}

// plan orders units by key count, then trial, then implementation, so that
// implementations take turns on the same workload.
func plan(cfg Config, adapters []csf.Adapter) []unit {
	units := make([]unit, 0, len(cfg.KeyCounts)*cfg.Trials*len(adapters))
	for k := range cfg.KeyCounts {
		for t := 0; t < cfg.Trials; t++ {
			for _, a := range adapters {
				units = append(units, unit{adapter: a, keyIdx: k, trial: t})
			}
		}
	}
	return units
}

// UnitCount returns the number of trials Run will execute, or an error if
// the configuration would be rejected by Run.
func UnitCount(cfg Config, reg *csf.Registry) (int, error) {
	adapters, err := prepare(cfg, reg)
	if err != nil {
		return 0, err
	}
	return len(cfg.KeyCounts) * cfg.Trials * len(adapters), nil
}

// prepare performs every check that can fail before the first trial.
func prepare(cfg Config, reg *csf.Registry) ([]csf.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	adapters, err := reg.Select(cfg.Implementations)
	if err != nil {
		return nil, err
	}
	for i, n := range cfg.KeyCounts {
		spec, err := cfg.WorkloadSpec(i, 0)
		if err != nil {
			return nil, err
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("key count %d: %w", n, err)
		}
	}
	return adapters, nil
}

// Run executes the benchmark described by cfg over the selected adapters of
// reg. Configuration, registry and workload errors are returned before any
// adapter is called. Trial failures are not errors; they are counted in the
// report.
func Run(ctx context.Context, cfg Config, reg *csf.Registry, opts Options) (*stats.Report, error) {
	adapters, err := prepare(cfg, reg)
	if err != nil {
		return nil, err
	}
	names := utils.Map(adapters, csf.Adapter.Name)
	units := plan(cfg, adapters)

	logger := logging.FromContext(ctx)
	logger.Info().
		Strs("implementations", names).
		Ints("key_counts", cfg.KeyCounts).
		Int("trials", cfg.Trials).
		Uint64("seed", cfg.Seed).
		Int("units", len(units)).
		Msg("benchmark starting")

	agg := stats.NewAggregator(names...)
	runner := bench.NewRunner(cfg.RunnerOptions())

	exec := func(ctx context.Context, u unit) error {
		spec, err := cfg.WorkloadSpec(u.keyIdx, u.trial)
		if err != nil {
			return err
		}
		w, err := workload.Generate(spec)
		if err != nil {
			return err
		}
		res := runner.Run(ctx, u.adapter, w, u.trial)
		if err := agg.Accumulate(res); err != nil {
			return err
		}
		ev := logger.Info()
		if !res.Succeeded() {
			ev = logger.Warn().Stringer("reason", res.Failure)
		}
		ev.Str("impl", res.Implementation).
			Str("keys", humanize.Comma(int64(res.KeyCount))).
			Int("trial", res.TrialIndex).
			Stringer("state", res.State).
			Str("build", res.BuildWall.String()).
			Float64("bits_per_key", res.BitsPerKey()).
			Msg("trial finished")
		if opts.OnTrial != nil {
			opts.OnTrial(res)
		}
		return nil
	}

	if cfg.Workers <= 1 {
		for _, u := range units {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := exec(ctx, u); err != nil {
				return nil, err
			}
		}
	} else {
		logger.Warn().Int("workers", cfg.Workers).
			Msg("running trials in parallel; wall-clock timings are affected by CPU contention")
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, u := range units {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return exec(gctx, u)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	rep, err := agg.Finalize()
	if err != nil {
		return nil, err
	}
	for _, line := range report.Summary(rep) {
		logger.Info().Msg(line)
	}
	for _, warn := range rep.Warnings {
		logger.Warn().Msg(warn)
	}
	return rep, nil
}
