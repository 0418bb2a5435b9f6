package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/calvinalkan/mdcollab/internal/engine"
)

// broadcastLog is the append-only in-memory buffer of every broadcast
// block the server has ever emitted, guarded by its own mutex (§5's log
// mutex). It doubles as the structured log a LOG? client request
// replays, matching server_log/log_mutex in
// original_source/source/server.c and the append-only style of
// append_to_server_log.
type broadcastLog struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (l *broadcastLog) append(block string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(block)
}

func (l *broadcastLog) snapshot() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.String()
}

// buildBroadcast renders a tick's report as the VERSION/EDIT.../END block
// spec.md §6 defines. A heartbeat tick (no commands queued) renders just
// the VERSION and END lines, per §4.5's failure-semantics note.
func buildBroadcast(version uint64, outcomes []engine.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "VERSION %d\n", version)

	for _, o := range outcomes {
		fmt.Fprintf(&b, "EDIT %s %s %s\n", o.Command.Username, o.Command.Raw, o.Status.String())
	}

	b.WriteString("END\n")

	return b.String()
}
