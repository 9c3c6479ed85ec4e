// Package csf defines the capability interface every benchmarked structure
// is reached through, and the registry of adapters.
//
// An Adapter builds a Structure from keys and values. The runner never looks
// inside a Structure: it only queries it and asks for its size.
package csf

import (
	"context"
	"errors"
	"fmt"

	"csfbench/utils"
)

var (
	// ErrConstruction wraps any failure reported by an adapter's Build.
	ErrConstruction = errors.New("construction failed")
	// ErrDuplicateName is returned when two adapters share a name.
	ErrDuplicateName = errors.New("duplicate implementation name")
	// ErrUnknownImplementation is returned when selecting a name that is
	// not registered.
	ErrUnknownImplementation = errors.New("unknown implementation")
)

// Mode says what a Structure's Query result means.
type Mode int

const (
	// ModeFunction structures map each key to its value.
	ModeFunction Mode = iota
	// ModePosition structures map the n keys to distinct positions in
	// [0, n) (minimal perfect hashing). Values are ignored.
	ModePosition
	// ModeMembership structures only answer whether a key is present.
	ModeMembership
)

func (m Mode) String() string {
	switch m {
	case ModeFunction:
		return "function"
	case ModePosition:
		return "position"
	case ModeMembership:
		return "membership"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Adapter builds structures of one implementation variant.
type Adapter interface {
	// Name is unique within a Registry.
	Name() string
	Mode() Mode
	// Build constructs a structure over keys. keys are distinct and values
	// is aligned with keys. Neither slice may be retained or modified.
	// Errors should wrap ErrConstruction.
	Build(ctx context.Context, keys, values []uint64) (Structure, error)
}

// Structure is a built, immutable structure.
type Structure interface {
	// Query must not mutate observable state. For keys that were not in
	// the build set the result is meaningful only if the structure
	// implements AbsenceDetector and reports true.
	Query(key uint64) (value uint64, ok bool)
	// SizeInBits is measured from the structure's actual representation.
	SizeInBits() uint64
}

// AbsenceDetector is implemented by structures that can reject keys
// outside the build set, possibly with false positives.
type AbsenceDetector interface {
	DetectsAbsence() bool
}

// MemReporter is implemented by structures that can break their size down.
type MemReporter interface {
	MemDetailed() utils.MemReport
}

// LevelReporter is implemented by structures whose lookups walk a number of
// levels (tables, hash levels, tree nodes) that can be observed per key.
type LevelReporter interface {
	QueryLevels(key uint64) int
}

// AllocationSized is implemented by structures whose SizeInBits undercounts
// their real representation. When it reports true, the runner takes the
// heap allocated by Build as the size instead.
type AllocationSized interface {
	SizedByAllocation() bool
}

// Describer is implemented by adapters that have tunable parameters worth
// printing next to their name.
type Describer interface {
	Params() string
}

// DetectsAbsence reports whether s can reject non-member keys.
func DetectsAbsence(s Structure) bool {
	d, ok := s.(AbsenceDetector)
	return ok && d.DetectsAbsence()
}

// SizedByAllocation reports whether s should be measured by its build
// allocations.
func SizedByAllocation(s Structure) bool {
	a, ok := s.(AllocationSized)
	return ok && a.SizedByAllocation()
}

// ParamsOf returns a's parameter string, or "" if it has none.
func ParamsOf(a Adapter) string {
	if d, ok := a.(Describer); ok {
		return d.Params()
	}
	return ""
}

// Constructionf returns an error wrapping ErrConstruction.
func Constructionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstruction, fmt.Sprintf(format, args...))
}
