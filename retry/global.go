package retry

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	globalMu   sync.Mutex
	globalExec *Executor
)

// DefaultExecutor returns the process-wide executor used by the package-level helpers, building it
// with NewDefaultExecutor on first use unless SetGlobal installed one earlier.
func DefaultExecutor() *Executor {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalExec == nil {
		globalExec = NewDefaultExecutor()
	}
	return globalExec
}

// SetGlobal installs exec as the process-wide executor and reports whether it took effect.
//
// Only the first installation wins: once DefaultExecutor has handed out an executor, later calls
// are ignored with a warning, so callers holding the old one keep a consistent view.
func SetGlobal(exec *Executor) bool {
	if exec == nil {
		return false
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalExec != nil {
		log.Warn().Str("component", "retry").Msg("global executor already initialized, ignoring SetGlobal")
		return false
	}
	globalExec = exec
	return true
}
