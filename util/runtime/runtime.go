// Package runtime resolves the name of a call-site function for use in
// diagnostic logging.
package runtime

import (
	"path/filepath"
	"runtime"
)

// CallerFuncName returns the name of the function skip stack frames above
// the caller of CallerFuncName itself. skip=0 names the immediate caller;
// callers that wrap this (e.g. package log's Trace) pass a larger skip to
// name their own caller instead of themselves.
func CallerFuncName(skip int) string {
	if skip < 0 {
		skip = 0
	}
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return filepath.Base(fn.Name())
}
