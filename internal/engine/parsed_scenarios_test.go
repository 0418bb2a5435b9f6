package engine_test

// These scenarios replay the worked examples from tick_test.go, but
// through internal/commandline.Parse and the real wire grammar (via
// internal/engine/enginetest) rather than hand-built engine.Command
// values, so the parser's argument order and token shapes -- HEADING's
// <level> <pos>, DEL's <pos> <len>, the inline commands' <start> <end>
// -- are exercised end to end into ApplyTick, not just the naive ops
// they dispatch to.

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/mdcollab/internal/engine"
	"github.com/calvinalkan/mdcollab/internal/engine/enginetest"
)

func TestParsedOrderedListCapsAtNine(t *testing.T) {
	h := enginetest.New(t)

	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "ORDERED_LIST 0"
	}

	h.MustApply(lines...)

	var want string
	for _, n := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 9} {
		want += fmt.Sprintf("%d. ", n)
	}

	require.Equal(t, want, h.Render())
}

func TestParsedOverlappingBoldsInsertFourMarkers(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 0123456789")
	h.MustApply("BOLD 2 5", "BOLD 2 9")

	require.Equal(t, "01****234**5678**9", h.Render())
}

func TestParsedHeadingArgumentOrderIsLevelThenPos(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 Hello\n")
	h.MustApply("HEADING 1 0")

	require.Equal(t, "# Hello\n", h.Render())

	h2 := enginetest.New(t)
	h2.MustApply("INSERT 0 Hello\n")
	h2.MustApply("HEADING 3 0")
	require.Equal(t, "### Hello\n", h2.Render())
}

func TestParsedDeleteRemovesBytes(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 abcdefgh")
	h.MustApply("DEL 2 3")

	require.Equal(t, "abfgh", h.Render())
}

func TestParsedItalicWrapsSelection(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 hello")
	h.MustApply("ITALIC 0 5")

	require.Equal(t, "*hello*", h.Render())
}

func TestParsedCodeWrapsSelection(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 hello")
	h.MustApply("CODE 0 5")

	require.Equal(t, "`hello`", h.Render())
}

func TestParsedLinkWrapsSelectionWithURL(t *testing.T) {
	h := enginetest.New(t)

	h.MustApply("INSERT 0 hello")
	h.MustApply("LINK 0 5 https://example.com")

	require.Equal(t, "[hello](https://example.com)", h.Render())
}

// A read-role submitter's command must be rejected before it ever reaches
// a naive op, through the same commandline.Parse path the transport uses.
func TestParsedReadRoleCommandRejected(t *testing.T) {
	h := enginetest.New(t).AsRole(engine.RoleRead)

	rep := h.Apply("INSERT 0 Hello")

	require.Equal(t, engine.StatusRejectUnauthorised, rep.Outcomes[0].Status)
	require.Empty(t, h.Render())
}

// A malformed line (missing required token) must resolve to
// StatusMalformed rather than panicking or silently being dropped.
func TestParsedMalformedLineRejected(t *testing.T) {
	h := enginetest.New(t)

	rep := h.Apply("HEADING 1")

	require.Equal(t, engine.StatusMalformed, rep.Outcomes[0].Status)
}
