package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"csfbench/bench"
	"csfbench/stats"
	"csfbench/workload"
)

func sampleReport(t *testing.T) *stats.Report {
	t.Helper()
	cfg := func(n int) workload.Config { return workload.Spec{KeyCount: n, ValueRange: 256}.Config() }
	ok := func(size uint64, perQuery time.Duration) bench.TrialResult {
		return bench.TrialResult{
			Implementation: "bbhash",
			Config:         cfg(1000),
			State:          bench.Completed,
			KeyCount:       1000,
			SizeBits:       size,
			BuildWall:      time.Millisecond,
			QueryCount:     1000,
			QueryDuration:  1000 * perQuery,
			LevelSamples:   1000,
			QueryLevels:    3000,
		}
	}
	a := stats.NewAggregator("bbhash", "broken")
	require.NoError(t, a.Accumulate(ok(12000, 50*time.Nanosecond)))
	require.NoError(t, a.Accumulate(ok(14000, 70*time.Nanosecond)))
	require.NoError(t, a.Accumulate(bench.TrialResult{
		Implementation: "bbhash", Config: cfg(1000), State: bench.Failed,
		Failure: bench.FailTimeout, Err: bench.ErrTimeout,
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Accumulate(bench.TrialResult{
			Implementation: "broken", Params: "gamma=2.0", Config: cfg(1000), State: bench.Failed,
			Failure: bench.FailConstruction, Err: errors.New("no"),
		}))
	}
	rep, err := a.Finalize()
	require.NoError(t, err)
	return rep
}

func lines(s string) [][]string {
	var out [][]string
	for _, l := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		out = append(out, strings.Fields(l))
	}
	return out
}

func TestText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(t), Options{Comments: []string{"seed=42"}}))

	got := lines(buf.String())
	require.Equal(t, [][]string{
		{"#", "seed=42"},
		Columns,
		{"bbhash", "1000", "1.000", "13.0000", "17.143", "2", "1"},
		{"broken", "1000", "FAILED", "FAILED", "FAILED", "0", "3"},
	}, got)
}

func TestTextIsAligned(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(t), Options{}))
	rows := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	col := strings.Index(rows[0], "key_count")
	for _, r := range rows[1:] {
		require.Equal(t, "1000", r[col:col+4])
	}
}

func TestTextExtended(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(t), Options{Extended: true}))

	got := lines(buf.String())
	require.Equal(t, append(append([]string{}, Columns...), ExtendedColumns...), got[0])
	require.Equal(t, []string{
		"bbhash", "1000", "1.000", "13.0000", "17.143", "2", "1",
		"1.4142", "0.000", "1000000", NA, NA, "0.0000", "3.00", "timeout=1", "-",
	}, got[1])
	require.Equal(t, []string{
		"broken", "1000", Failed, Failed, Failed, "0", "3",
		Failed, Failed, Failed, Failed, Failed, Failed, Failed, "construction=3", "gamma=2.0",
	}, got[2])
}

func TestWarningsFollowTable(t *testing.T) {
	t.Parallel()
	rep := sampleReport(t)
	rep.Warnings = []string{"size not monotonic: x"}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, rep, Options{}))
	require.True(t, strings.HasSuffix(buf.String(), "# warning: size not monotonic: x\n"))
}

func TestCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleReport(t), Options{}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		Columns,
		{"bbhash", "1000", "1.000", "13.0000", "17.143", "2", "1"},
		{"broken", "1000", "FAILED", "FAILED", "FAILED", "0", "3"},
	}, records)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	got := Summary(sampleReport(t))
	require.Len(t, got, 2)
	require.True(t, strings.HasPrefix(got[0], "bbhash: 1,000 keys: 13.00 bits/key"), got[0])
	require.Equal(t, "broken: 1,000 keys: all 3 trials failed (construction=3)", got[1])
}
