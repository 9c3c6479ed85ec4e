package report

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"csfbench/stats"
)

// Summary returns one human-readable line per row, for logs.
func Summary(rep *stats.Report) []string {
	lines := make([]string, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		keys := humanize.Comma(int64(row.Config.KeyCount))
		if row.Failed() {
			lines = append(lines, fmt.Sprintf("%s: %s keys: all %d trials failed (%s)",
				row.Implementation, keys, row.Failures, row.FailureSummary()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s keys: %.2f bits/key (%s), build %s, %s",
			row.Implementation, keys,
			row.BitsPerKey.Mean(),
			humanize.Bytes(uint64(row.SizeBits.Mean()/8)),
			humanize.SIWithDigits(row.BuildKeysPerSec.Mean(), 1, "keys/s"),
			humanize.SIWithDigits(row.QueryPerSec.Mean(), 1, "queries/s"),
		))
	}
	return lines
}
