// Package log adds call-site function-name tagging on top of logrus, for
// the trace-level diagnostics the engine and its adapters emit at
// state-machine transitions (resize, compaction, adapter failure).
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/patchbrain/rogue/util/runtime"
)

// Trace returns entry with a "func" field naming whichever function called
// Trace, so a resize/compaction/adapter-failure log line can be traced back
// to its call site without a stack trace.
func Trace(entry *logrus.Entry) *logrus.Entry {
	return entry.WithField("func", runtime.CallerFuncName(1))
}
