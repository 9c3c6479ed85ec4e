package bench

import (
	"fmt"
	"time"

	"csfbench/csf"
	"csfbench/workload"
)

// State is the stage a trial reached.
type State int

const (
	Idle State = iota
	Building
	Verifying
	QueryTiming
	Completed
	Failed
)

var stateNames = []string{"idle", "building", "verifying", "query_timing", "completed", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// FailureReason says why a trial ended in Failed.
type FailureReason int

const (
	NoFailure FailureReason = iota
	FailConstruction
	FailVerificationMismatch
	FailTimeout
)

var reasonNames = []string{"none", "construction", "verification_mismatch", "timeout"}

func (r FailureReason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("FailureReason(%d)", int(r))
}

// TrialResult is the outcome of one build/verify/query cycle. Durations are
// zero for stages the trial did not reach.
type TrialResult struct {
	Implementation string
	Params         string
	Mode           csf.Mode
	Config         workload.Config
	TrialIndex     int

	State   State
	Failure FailureReason
	Err     error

	BuildWall time.Duration
	BuildCPU  time.Duration
	// BuildHeapBytes is the number of bytes allocated while building.
	BuildHeapBytes uint64
	SizeBits       uint64
	KeyCount       int
	ValueEntropy   float64

	VerifiedKeys int
	// LevelSamples is the number of verified keys whose lookup depth was
	// reported; QueryLevels is the sum of those depths.
	LevelSamples int
	QueryLevels  int

	QueryCount    int
	QueryDuration time.Duration

	AbsentQueryCount    int
	AbsentQueryDuration time.Duration
	FalsePositives      int
}

func (r TrialResult) Succeeded() bool { return r.State == Completed }

func (r TrialResult) BitsPerKey() float64 {
	if r.KeyCount == 0 {
		return 0
	}
	return float64(r.SizeBits) / float64(r.KeyCount)
}

// LevelsPerQuery is the mean lookup depth over the verified keys. ok is
// false when the structure does not report levels.
func (r TrialResult) LevelsPerQuery() (levels float64, ok bool) {
	if r.LevelSamples == 0 {
		return 0, false
	}
	return float64(r.QueryLevels) / float64(r.LevelSamples), true
}

func (r TrialResult) QueryNsPerOp() float64 {
	return nsPerOp(r.QueryDuration, r.QueryCount)
}

func (r TrialResult) AbsentQueryNsPerOp() float64 {
	return nsPerOp(r.AbsentQueryDuration, r.AbsentQueryCount)
}

// QueryThroughput is queries per second.
func (r TrialResult) QueryThroughput() float64 {
	return perSecond(r.QueryCount, r.QueryDuration)
}

func (r TrialResult) AbsentQueryThroughput() float64 {
	return perSecond(r.AbsentQueryCount, r.AbsentQueryDuration)
}

// BuildThroughput is keys per second of build wall time.
func (r TrialResult) BuildThroughput() float64 {
	return perSecond(r.KeyCount, r.BuildWall)
}

// FalsePositiveRate is the share of absent queries answered as present.
func (r TrialResult) FalsePositiveRate() float64 {
	if r.AbsentQueryCount == 0 {
		return 0
	}
	return float64(r.FalsePositives) / float64(r.AbsentQueryCount)
}

func nsPerOp(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Nanoseconds()) / float64(n)
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
