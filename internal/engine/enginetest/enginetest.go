// Package enginetest is a small in-test fixture builder for
// internal/engine: it drives ApplyTick through the real command-line
// grammar (internal/commandline.Parse) instead of hand-built
// engine.Command values, the same way internal/cli/testing.go's CLI
// harness drives ticket commands through the real CLI entrypoint
// rather than calling ticket package functions directly.
package enginetest

import (
	"testing"

	"github.com/calvinalkan/mdcollab/internal/commandline"
	"github.com/calvinalkan/mdcollab/internal/engine"
)

// Harness wraps a Document plus the bookkeeping needed to submit raw
// command lines as a properly-sequenced batch: each line gets the next
// tick's timestamp and an increasing Seq, the same tie-break order
// internal/transport.Server.submit builds for its queue.
type Harness struct {
	t    *testing.T
	Doc  *engine.Document
	role engine.Role
	tick int64
}

// New returns a Harness over a fresh, empty document.
func New(t *testing.T) *Harness {
	t.Helper()

	return &Harness{t: t, Doc: engine.NewDocument(), role: engine.RoleWrite}
}

// Seed returns a Harness whose document already contains text, parsed
// into typed chunks via engine.ParseDocument and published as the
// committed snapshot, as if an earlier tick had produced it.
func Seed(t *testing.T, text string) *Harness {
	t.Helper()

	doc := engine.ParseDocument([]byte(text))
	doc.Seed([]byte(text))

	return &Harness{t: t, Doc: doc, role: engine.RoleWrite}
}

// AsRole returns h with subsequent Apply/MustApply calls submitting as
// the given role, for exercising the REJECT_UNAUTHORISED path through
// the real parser.
func (h *Harness) AsRole(role engine.Role) *Harness {
	h.role = role

	return h
}

// Apply parses each line with commandline.Parse (a line the parser
// rejects becomes an engine.Malformed command, exactly as
// transport.Server.submit builds one), stamps role/timestamp/Seq, and
// replays the whole batch through one ApplyTick call.
func (h *Harness) Apply(lines ...string) engine.TickReport {
	h.t.Helper()

	h.tick++

	cmds := make([]engine.Command, len(lines))

	for i, line := range lines {
		cmd, err := commandline.Parse(line)
		if err != nil {
			cmd = engine.Command{Kind: engine.Malformed, Raw: line}
		}

		cmd.Role = h.role
		cmd.Timestamp = engine.Timestamp{Sec: h.tick}
		cmd.Seq = i
		cmds[i] = cmd
	}

	return h.Doc.ApplyTick(cmds)
}

// MustApply applies lines as a single tick and fails the test unless
// every one of them resolves to StatusSuccess.
func (h *Harness) MustApply(lines ...string) engine.TickReport {
	h.t.Helper()

	rep := h.Apply(lines...)

	for i, o := range rep.Outcomes {
		if o.Status != engine.StatusSuccess {
			h.t.Fatalf("command %q: expected SUCCESS, got %s", lines[i], o.Status)
		}
	}

	return rep
}

// Render returns the document's committed snapshot as a string.
func (h *Harness) Render() string {
	return string(h.Doc.Snapshot())
}
