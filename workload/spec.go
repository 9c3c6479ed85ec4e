package workload

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWorkload is returned for workload parameters that cannot be
// generated. It is wrapped with the offending detail.
var ErrInvalidWorkload = errors.New("invalid workload")

// KeyDistribution selects how workload keys are drawn.
type KeyDistribution int

const (
	// UniformKeys draws distinct keys pseudo-randomly over [0, 2^KeyBits).
	UniformKeys KeyDistribution = iota
	// SequentialKeys uses consecutive integers from a seed-derived start.
	SequentialKeys
)

var keyDistNames = []string{"uniform", "sequential"}

func (d KeyDistribution) String() string {
	if d >= 0 && int(d) < len(keyDistNames) {
		return keyDistNames[d]
	}
	return fmt.Sprintf("KeyDistribution(%d)", int(d))
}

// ValueDistribution selects how function values are drawn.
type ValueDistribution int

const (
	// UniformValues draws each value uniformly from [0, ValueRange).
	UniformValues ValueDistribution = iota
	// DominantValues yields 0 with probability DominantShare and a uniform
	// value from [1, ValueRange) otherwise.
	DominantValues
	// GeometricValues yields v with probability 2^-(v+1), truncated to
	// ValueRange-1.
	GeometricValues
)

var valueDistNames = []string{"uniform", "dominant", "geometric"}

func (d ValueDistribution) String() string {
	if d >= 0 && int(d) < len(valueDistNames) {
		return valueDistNames[d]
	}
	return fmt.Sprintf("ValueDistribution(%d)", int(d))
}

// QueryOrder selects the order in which keys are queried during timing.
type QueryOrder int

const (
	// ShuffledOrder queries keys in a seeded random permutation.
	ShuffledOrder QueryOrder = iota
	// OriginalOrder queries keys in insertion order.
	OriginalOrder
)

var queryOrderNames = []string{"shuffled", "original"}

func (o QueryOrder) String() string {
	if o >= 0 && int(o) < len(queryOrderNames) {
		return queryOrderNames[o]
	}
	return fmt.Sprintf("QueryOrder(%d)", int(o))
}

func parseName(kind, s string, names []string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(s, n) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q (want one of %s)", ErrInvalidWorkload, kind, s, strings.Join(names, ", "))
}

func ParseKeyDistribution(s string) (KeyDistribution, error) {
	i, err := parseName("key distribution", s, keyDistNames)
	return KeyDistribution(i), err
}

func ParseValueDistribution(s string) (ValueDistribution, error) {
	i, err := parseName("value distribution", s, valueDistNames)
	return ValueDistribution(i), err
}

func ParseQueryOrder(s string) (QueryOrder, error) {
	i, err := parseName("query order", s, queryOrderNames)
	return QueryOrder(i), err
}

// Spec fully determines a Workload.
type Spec struct {
	Seed       uint64
	KeyCount   int
	Keys       KeyDistribution
	KeyBits    uint // 1..64; 0 means 64
	Values     ValueDistribution
	ValueRange uint64
	// DominantShare is the probability of value 0 under DominantValues.
	DominantShare float64
	// AbsentCount keys guaranteed not to be in the workload are generated
	// for out-of-set query timing.
	AbsentCount int
	QueryOrder  QueryOrder
}

func (s Spec) keyBits() uint {
	if s.KeyBits == 0 {
		return 64
	}
	return s.KeyBits
}

// Validate reports whether Generate would accept s, without generating it.
func (s Spec) Validate() error {
	switch {
	case s.KeyCount <= 0:
		return fmt.Errorf("%w: key count must be positive, got %d", ErrInvalidWorkload, s.KeyCount)
	case s.AbsentCount < 0:
		return fmt.Errorf("%w: absent count must be non-negative, got %d", ErrInvalidWorkload, s.AbsentCount)
	case s.KeyBits > 64:
		return fmt.Errorf("%w: key bits must be in 1..64, got %d", ErrInvalidWorkload, s.KeyBits)
	case s.ValueRange == 0:
		return fmt.Errorf("%w: value range must be at least 1", ErrInvalidWorkload)
	case s.Keys < UniformKeys || s.Keys > SequentialKeys:
		return fmt.Errorf("%w: unknown key distribution %d", ErrInvalidWorkload, int(s.Keys))
	case s.Values < UniformValues || s.Values > GeometricValues:
		return fmt.Errorf("%w: unknown value distribution %d", ErrInvalidWorkload, int(s.Values))
	case s.QueryOrder < ShuffledOrder || s.QueryOrder > OriginalOrder:
		return fmt.Errorf("%w: unknown query order %d", ErrInvalidWorkload, int(s.QueryOrder))
	case s.DominantShare < 0 || s.DominantShare > 1:
		return fmt.Errorf("%w: dominant share must be in [0,1], got %g", ErrInvalidWorkload, s.DominantShare)
	}
	if bits := s.keyBits(); bits < 64 {
		space := uint64(1) << bits
		if uint64(s.KeyCount)+uint64(s.AbsentCount) > space {
			return fmt.Errorf("%w: %d keys plus %d absent keys do not fit in a %d-bit key space",
				ErrInvalidWorkload, s.KeyCount, s.AbsentCount, bits)
		}
	}
	return nil
}

// Config is the comparable identity of a workload shape. Two trials with
// equal Configs differ only in their seed and are aggregated together.
type Config struct {
	Keys          KeyDistribution
	KeyCount      int
	KeyBits       uint
	Values        ValueDistribution
	ValueRange    uint64
	DominantShare float64
	QueryOrder    QueryOrder
	AbsentCount   int
}

// Shape is c without the key count, used to compare sizes across key counts.
func (c Config) Shape() Config {
	c.KeyCount = 0
	return c
}

func (c Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%db n=%d values=%s[%d]", c.Keys, c.KeyBits, c.KeyCount, c.Values, c.ValueRange)
	if c.Values == DominantValues {
		fmt.Fprintf(&sb, "@%g", c.DominantShare)
	}
	fmt.Fprintf(&sb, " order=%s", c.QueryOrder)
	if c.AbsentCount > 0 {
		fmt.Fprintf(&sb, " absent=%d", c.AbsentCount)
	}
	return sb.String()
}

func (s Spec) Config() Config {
	return Config{
		Keys:          s.Keys,
		KeyCount:      s.KeyCount,
		KeyBits:       s.keyBits(),
		Values:        s.Values,
		ValueRange:    s.ValueRange,
		DominantShare: s.DominantShare,
		QueryOrder:    s.QueryOrder,
		AbsentCount:   s.AbsentCount,
	}
}
