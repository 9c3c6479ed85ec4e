// Package errutil holds the small invariant helpers shared by the harness.
//
// Bug and BugOn only fire when CSFBENCH_DEBUG=1 is set; FatalIf always fires.
package errutil

import (
	"fmt"
	"os"
)

var debug = os.Getenv("CSFBENCH_DEBUG") == "1"

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func FatalIf(err error) {
	if err == nil {
		return
	}
	panic(fmt.Sprintf("FATAL: %v", err))
}

func Bug(format string, msg ...any) {
	if debug {
		panic(fmt.Sprintf("BUG: "+format, msg...))
	}
}

func BugOn(cond bool, format string, msg ...any) {
	if debug && cond {
		Bug(format, msg...)
	}
}
