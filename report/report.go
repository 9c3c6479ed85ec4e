// Package report renders a stats.Report as an aligned text table or CSV.
//
// Column order and numeric precision are fixed so output can be parsed:
// build_time is in milliseconds (%.3f), bits_per_key is %.4f and
// query_throughput is in million queries per second (%.3f). Rows with no
// successful trial print FAILED in every metric column; metrics that do not
// apply to a row print n/a.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"csfbench/csf"
	"csfbench/stats"
)

const (
	Failed = "FAILED"
	NA     = "n/a"
)

// Columns is the fixed column set of every report.
var Columns = []string{
	"implementation", "key_count", "build_time", "bits_per_key",
	"query_throughput", "trial_count", "failures",
}

// ExtendedColumns are appended in extended mode.
var ExtendedColumns = []string{
	"bits_per_key_sd", "build_cpu", "build_keys_per_s", "absent_throughput",
	"fp_rate", "value_entropy", "levels_per_query", "failure_reasons", "params",
}

type Options struct {
	Extended bool
	// Comments are printed as "# " lines before the text table.
	Comments []string
}

func header(opts Options) []string {
	h := append([]string(nil), Columns...)
	if opts.Extended {
		h = append(h, ExtendedColumns...)
	}
	return h
}

// metric formats fn(s) with format, or FAILED/n/a.
func metric(row *stats.Row, s stats.Summary, format string, scale float64) string {
	if row.Failed() {
		return Failed
	}
	if s.Count() == 0 {
		return NA
	}
	return fmt.Sprintf(format, s.Mean()*scale)
}

func record(row *stats.Row, opts Options) []string {
	rec := []string{
		row.Implementation,
		strconv.Itoa(row.Config.KeyCount),
		metric(row, row.BuildWallMs, "%.3f", 1),
		metric(row, row.BitsPerKey, "%.4f", 1),
		metric(row, row.QueryPerSec, "%.3f", 1e-6),
		strconv.Itoa(row.Successes),
		strconv.Itoa(row.Failures),
	}
	if !opts.Extended {
		return rec
	}

	sd := Failed
	if !row.Failed() {
		sd = fmt.Sprintf("%.4f", row.BitsPerKey.StdDev())
	}
	entropy := NA
	if row.Mode == csf.ModeFunction {
		entropy = metric(row, row.ValueEntropy, "%.4f", 1)
	}
	reasons := row.FailureSummary()
	if reasons == "" {
		reasons = "-"
	}
	params := row.Params
	if params == "" {
		params = "-"
	}
	return append(rec,
		sd,
		metric(row, row.BuildCPUMs, "%.3f", 1),
		metric(row, row.BuildKeysPerSec, "%.0f", 1),
		metric(row, row.AbsentPerSec, "%.3f", 1e-6),
		metric(row, row.FalsePositiveRate, "%.6f", 1),
		entropy,
		metric(row, row.LevelsPerQuery, "%.2f", 1),
		reasons,
		params,
	)
}

// Text writes rep as an aligned table followed by its warnings.
func Text(w io.Writer, rep *stats.Report, opts Options) error {
	for _, c := range opts.Comments {
		if _, err := fmt.Fprintf(w, "# %s\n", c); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeLine := func(fields []string) error {
		for i, f := range fields {
			sep := "\t"
			if i == len(fields)-1 {
				sep = "\n"
			}
			if _, err := io.WriteString(tw, f+sep); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeLine(header(opts)); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		if err := writeLine(record(row, opts)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range rep.Warnings {
		if _, err := fmt.Fprintf(w, "# warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}

// CSV writes rep with a header row. Warnings are not included.
func CSV(w io.Writer, rep *stats.Report, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(opts)); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		if err := cw.Write(record(row, opts)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
