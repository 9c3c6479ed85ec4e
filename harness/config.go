// Package harness plans and runs a full benchmark: every selected
// implementation at every key count, repeated for a number of trials, and
// folds the results into a report.
package harness

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"csfbench/bench"
	"csfbench/csf"
	"csfbench/workload"
)

// ErrInvalidConfig is returned by Validate and LoadFile.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved benchmark configuration. Enumerations are kept as
// strings so the YAML file and the command line use the same spelling.
type Config struct {
	Implementations []string `yaml:"implementations"`
	KeyCounts       []int    `yaml:"key_counts"`

	Keys          string  `yaml:"keys"`
	KeyBits       uint    `yaml:"key_bits"`
	Values        string  `yaml:"values"`
	ValueRange    uint64  `yaml:"value_range"`
	DominantShare float64 `yaml:"dominant_share"`

	Trials int    `yaml:"trials"`
	Seed   uint64 `yaml:"seed"`

	QueryCount    int    `yaml:"query_count"`
	WarmupQueries int    `yaml:"warmup_queries"`
	AbsentQueries int    `yaml:"absent_queries"`
	QueryOrder    string `yaml:"query_order"`

	// VerifySample checks only this many keys per trial; 0 checks all.
	VerifySample int           `yaml:"verify_sample"`
	TrialTimeout time.Duration `yaml:"trial_timeout"`
	Workers      int           `yaml:"workers"`
}

func DefaultConfig() Config {
	return Config{
		KeyCounts:     []int{100_000},
		Keys:          workload.UniformKeys.String(),
		KeyBits:       64,
		Values:        workload.UniformValues.String(),
		ValueRange:    256,
		DominantShare: 0.9,
		Trials:        3,
		Seed:          42,
		QueryOrder:    workload.ShuffledOrder.String(),
		Workers:       1,
	}
}

// LoadFile reads a YAML file over DefaultConfig. Unknown keys are errors.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the fields that do not depend on the registry. Key counts
// are checked later by workload validation so that they report
// InvalidWorkload.
func (c Config) Validate() error {
	if len(c.KeyCounts) == 0 {
		return invalid("no key counts")
	}
	if c.Trials <= 0 {
		return invalid("trials must be positive, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return invalid("workers must be non-negative, got %d", c.Workers)
	}
	if c.QueryCount < 0 || c.WarmupQueries < 0 || c.AbsentQueries < 0 || c.VerifySample < 0 {
		return invalid("query, warm-up, absent and verify counts must be non-negative")
	}
	if c.TrialTimeout < 0 {
		return invalid("trial timeout must be non-negative, got %s", c.TrialTimeout)
	}
	seen := make(map[string]bool, len(c.Implementations))
	for _, name := range c.Implementations {
		if seen[name] {
			return fmt.Errorf("%w: %w: %q listed twice", ErrInvalidConfig, csf.ErrDuplicateName, name)
		}
		seen[name] = true
	}
	if _, err := c.baseSpec(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (c Config) baseSpec() (workload.Spec, error) {
	keys, err := workload.ParseKeyDistribution(c.Keys)
	if err != nil {
		return workload.Spec{}, err
	}
	values, err := workload.ParseValueDistribution(c.Values)
	if err != nil {
		return workload.Spec{}, err
	}
	order, err := workload.ParseQueryOrder(c.QueryOrder)
	if err != nil {
		return workload.Spec{}, err
	}
	return workload.Spec{
		Keys:          keys,
		KeyBits:       c.KeyBits,
		Values:        values,
		ValueRange:    c.ValueRange,
		DominantShare: c.DominantShare,
		AbsentCount:   c.AbsentQueries,
		QueryOrder:    order,
	}, nil
}

// WorkloadSpec returns the spec of the given key count index and trial. The
// seed depends only on the run seed and the coordinates, so every
// implementation sees the same workload.
func (c Config) WorkloadSpec(keyCountIdx, trial int) (workload.Spec, error) {
	spec, err := c.baseSpec()
	if err != nil {
		return spec, err
	}
	spec.KeyCount = c.KeyCounts[keyCountIdx]
	spec.Seed = workload.MixSeed(c.Seed, uint64(keyCountIdx), uint64(trial))
	return spec, nil
}

func (c Config) RunnerOptions() bench.Options {
	return bench.Options{
		QueryCount:    c.QueryCount,
		WarmupQueries: c.WarmupQueries,
		VerifySample:  c.VerifySample,
		TrialTimeout:  c.TrialTimeout,
	}
}

// Describe returns the lines printed above the report table.
func (c Config) Describe() []string {
	verify := "all"
	if c.VerifySample > 0 {
		verify = fmt.Sprintf("sample=%d", c.VerifySample)
	}
	queries := "n"
	if c.QueryCount > 0 {
		queries = fmt.Sprint(c.QueryCount)
	}
	return []string{
		fmt.Sprintf("seed=%d trials=%d workers=%d", c.Seed, c.Trials, c.Workers),
		fmt.Sprintf("keys=%s key_bits=%d values=%s value_range=%d", c.Keys, c.KeyBits, c.Values, c.ValueRange),
		fmt.Sprintf("query_order=%s queries=%s warmup=%d absent=%d verify=%s",
			strings.ToLower(c.QueryOrder), queries, c.WarmupQueries, c.AbsentQueries, verify),
		"build_time in ms, query_throughput in Mq/s",
	}
}
