package bench

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationMismatch is wrapped by every MismatchError.
	ErrVerificationMismatch = errors.New("verification mismatch")
	// ErrTimeout is returned when a build outlives its budget or the run
	// is cancelled while building.
	ErrTimeout = errors.New("trial timed out")
)

// MismatchError describes the first key whose answer violated the mode
// contract.
type MismatchError struct {
	Key      uint64
	Index    int
	Expected uint64
	Got      uint64
	Found    bool
	Detail   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: key %d (index %d): %s: expected %d, got (%d, %v)",
		ErrVerificationMismatch, e.Key, e.Index, e.Detail, e.Expected, e.Got, e.Found)
}

func (e *MismatchError) Unwrap() error { return ErrVerificationMismatch }
